package timeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Motor de transiciones del ciclo reproductivo. Cada applyX muta una COPIA
// del timeline: marca el evento disparador, agrega los eventos de seguimiento
// que correspondan y retira los pendientes que la resolución invalida. El
// service persiste el documento entero después, o nada.

const (
	titleMedicine     = "Uterus Checking"
	titleDeworming    = "Deworming"
	titleFirstHeat    = "First Heat"
	titleHeatCheck    = "Heat Check Before PD"
	titlePDCheck      = "Pregnancy Detection"
	titleDelivery     = "Expected Delivery"
	titleHeatCycleFmt = "Heat Cycle %d"

	descCheckHeatSigns = "Check for heat signs"
)

// initialEvents arma los tres eventos base a partir de la fecha del último parto.
func initialEvents(lastDelivery, now time.Time) []Event {
	return []Event{
		{
			ID:            uuid.NewString(),
			Kind:          KindMedicine,
			Title:         titleMedicine,
			Description:   "Check the condition in Uterus (15 days after delivery)",
			Status:        StatusPending,
			ScheduledDate: addDays(lastDelivery, daysUntilMedicine),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            uuid.NewString(),
			Kind:          KindDeworming,
			Title:         titleDeworming,
			Description:   "Deworming medicine needs to be given (20 days after delivery)",
			Status:        StatusPending,
			ScheduledDate: addDays(lastDelivery, daysUntilDeworming),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            uuid.NewString(),
			Kind:          KindFirstHeat,
			Title:         titleFirstHeat,
			Description:   "Record the date when first heat is detected (35-60 days from Delivery)",
			Status:        StatusPending,
			ScheduledDate: addDays(lastDelivery, daysUntilFirstHeat),
			AIStatus:      AIPending,
			CycleNumber:   1, // el primer celo es el ciclo 1
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

// ResolveInput es el resultado reportado por la vía genérica
// (first_heat / heat_cycle, y actualización simple de medicine/deworming).
type ResolveInput struct {
	Status           EventStatus
	CompletedDate    *time.Time
	AIStatus         AIStatus
	SemenBullDetails string
	HeatDate         *time.Time
}

func applyResolve(t *Timeline, idx int, in ResolveInput, now time.Time) error {
	if !validStatus(in.Status) {
		return ErrInvalidInput
	}
	if in.Status == StatusCompleted && in.CompletedDate == nil {
		return ErrInvalidInput
	}
	if in.AIStatus != "" && !validAIStatus(in.AIStatus) {
		return ErrInvalidInput
	}

	ev := &t.Events[idx]
	ev.Status = in.Status
	if in.CompletedDate != nil {
		ev.CompletedDate = cloneDate(in.CompletedDate)
	}
	if in.AIStatus != "" {
		ev.AIStatus = in.AIStatus
	}
	if in.SemenBullDetails != "" {
		ev.SemenBullDetails = in.SemenBullDetails
	}
	if in.HeatDate != nil {
		ev.HeatDate = cloneDate(in.HeatDate)
	}
	ev.UpdatedAt = now

	if ev.Kind != KindFirstHeat && ev.Kind != KindHeatCycle {
		return nil // medicine/deworming: solo cambio de estado
	}

	switch {
	case in.AIStatus == AIDone && in.CompletedDate != nil:
		// IA realizada: programar chequeo de celo pre-PD y el PD mismo,
		// anclados a la fecha de la IA.
		aiDate := *in.CompletedDate
		cycle := resolveCycleNumber(*t, *ev, false)

		if !hasPendingOfCycle(*t, KindHeatCheckBeforePD, cycle) {
			appendEvent(t, Event{
				Kind:          KindHeatCheckBeforePD,
				Title:         titleHeatCheck,
				Description:   "Check if heat signs are visible before PD Check",
				Status:        StatusPending,
				ScheduledDate: addDays(aiDate, daysHeatCheckAfterAI),
				AIStatus:      AIPending,
				CycleNumber:   cycle,
			}, now)
		}
		if !hasPendingOfCycle(*t, KindPDCheck, cycle) {
			appendEvent(t, Event{
				Kind:          KindPDCheck,
				Title:         titlePDCheck,
				Description:   "Conduct pregnancy diagnosis",
				Status:        StatusPending,
				ScheduledDate: addDays(aiDate, daysPDCheckAfterAI),
				AIStatus:      AIPending,
				CycleNumber:   cycle,
			}, now)
		}

	case in.AIStatus == AINotDone && in.HeatDate != nil:
		// Celo visto pero sin IA: el próximo celo esperado cae un ciclo
		// después de la fecha de celo reportada.
		next := resolveCycleNumber(*t, *ev, false) + 1
		if !hasPendingOfCycle(*t, KindHeatCycle, next) {
			appendEvent(t, Event{
				Kind:          KindHeatCycle,
				Title:         fmt.Sprintf(titleHeatCycleFmt, next),
				Description:   descCheckHeatSigns,
				Status:        StatusPending,
				ScheduledDate: addDays(*in.HeatDate, heatCycleDays),
				AIStatus:      AIPending,
				CycleNumber:   next,
			}, now)
		}
	}

	return nil
}

// HeatCheckInput es el resultado reportado por la vía de chequeo de celo
// (heat_check_before_pd o heat_cycle).
type HeatCheckInput struct {
	Status           EventStatus
	CompletedDate    *time.Time
	HeatVisible      *bool
	HeatSigns        []string
	AIStatus         AIStatus
	SemenBullDetails string
}

func applyHeatCheck(t *Timeline, idx int, in HeatCheckInput, now time.Time) error {
	if !validStatus(in.Status) {
		return ErrInvalidInput
	}
	if in.Status == StatusCompleted && in.CompletedDate == nil {
		return ErrInvalidInput
	}
	if in.AIStatus != "" && !validAIStatus(in.AIStatus) {
		return ErrInvalidInput
	}

	ev := &t.Events[idx]
	if ev.Kind != KindHeatCheckBeforePD && ev.Kind != KindHeatCycle {
		return ErrInvalidInput
	}

	ev.Status = in.Status
	if in.CompletedDate != nil {
		ev.CompletedDate = cloneDate(in.CompletedDate)
	}
	if in.HeatVisible != nil {
		ev.HeatVisible = *in.HeatVisible
	}
	if len(in.HeatSigns) > 0 {
		ev.HeatSigns = append([]string(nil), in.HeatSigns...)
	}
	if in.AIStatus != "" {
		ev.AIStatus = in.AIStatus
	}
	if in.SemenBullDetails != "" {
		ev.SemenBullDetails = in.SemenBullDetails
	}
	ev.UpdatedAt = now

	if in.CompletedDate == nil {
		return nil
	}

	switch in.AIStatus {
	case AIDone:
		resolveHeatCheckAIDone(t, idx, *in.CompletedDate, in.SemenBullDetails, now)
	case AINotDone:
		resolveHeatCheckNoAI(t, idx, *in.CompletedDate, now)
	}

	return nil
}

// resolveHeatCheckAIDone documenta la nueva IA como ciclo completado y deja
// exactamente un par pendiente (heat check + PD) para ese ciclo.
func resolveHeatCheckAIDone(t *Timeline, idx int, aiDate time.Time, semen string, now time.Time) {
	// Copia del disparador: los append/remove de abajo reubican el slice.
	trigger := t.Events[idx]

	// El celo recién observado es el ciclo siguiente al que venía
	// siguiendo este chequeo; un heat_cycle pendiente resuelto con IA
	// conserva su propio número.
	var cycle int
	if stored := trigger.CycleNumber; stored > 0 {
		cycle = stored
		if trigger.Kind == KindHeatCheckBeforePD {
			cycle = stored + 1
		}
	} else {
		cycle = resolveCycleNumber(*t, trigger, true)
	}

	desc := "AI PERFORMED"
	if semen != "" {
		desc = "AI PERFORMED - Bull: " + semen
	}

	if trigger.Kind == KindHeatCheckBeforePD {
		// Registro completado que documenta el resultado de este ciclo.
		appendEvent(t, Event{
			Kind:             KindHeatCycle,
			Title:            fmt.Sprintf(titleHeatCycleFmt, cycle),
			Description:      desc,
			Status:           StatusCompleted,
			ScheduledDate:    aiDate,
			CompletedDate:    &aiDate,
			AIStatus:         AIDone,
			SemenBullDetails: semen,
			CycleNumber:      cycle,
		}, now)
	} else {
		t.Events[idx].Description = desc
	}

	// Una vez resuelto este ciclo, cualquier otro chequeo, diagnóstico o
	// celo reprogramado pendiente quedó especulativo: se retira para no
	// duplicar ramas.
	removeEvents(t, func(e Event) bool {
		if e.ID == trigger.ID || e.Status != StatusPending {
			return false
		}
		return e.Kind == KindHeatCheckBeforePD || e.Kind == KindPDCheck || e.Kind == KindHeatCycle
	})

	// Nuevo par de seguimiento anclado a la fecha de esta IA, salvo que ya
	// exista un equivalente agendado después de ella.
	if !hasPendingAfter(*t, KindHeatCheckBeforePD, aiDate) {
		appendEvent(t, Event{
			Kind:          KindHeatCheckBeforePD,
			Title:         titleHeatCheck,
			Description:   "Check if heat signs are visible before PD Check",
			Status:        StatusPending,
			ScheduledDate: addDays(aiDate, daysHeatCheckAfterAI),
			AIStatus:      AIPending,
			CycleNumber:   cycle,
		}, now)
	}
	if !hasPendingAfter(*t, KindPDCheck, aiDate) {
		appendEvent(t, Event{
			Kind:          KindPDCheck,
			Title:         titlePDCheck,
			Description:   "Conduct pregnancy diagnosis",
			Status:        StatusPending,
			ScheduledDate: addDays(aiDate, daysPDCheckAfterAI),
			AIStatus:      AIPending,
			CycleNumber:   cycle,
		}, now)
	}
}

// resolveHeatCheckNoAI cierra el ciclo sin IA. Con señales de celo visibles
// agenda el próximo ciclo; sin señales el timeline queda inactivo hasta que
// alguien reporte celo de nuevo.
func resolveHeatCheckNoAI(t *Timeline, idx int, heatDate time.Time, now time.Time) {
	// Copia del disparador: los append/remove de abajo reubican el slice.
	trigger := t.Events[idx]
	cycle := resolveCycleNumber(*t, trigger, false)

	// Ciclos pendientes con número mayor quedaron invalidados por esta
	// resolución más temprana. Sin IA tampoco queda diagnóstico que
	// esperar para este ciclo: su pd_check pendiente se retira.
	isHeatCheck := trigger.Kind == KindHeatCheckBeforePD
	removeEvents(t, func(e Event) bool {
		if e.Status != StatusPending {
			return false
		}
		if e.Kind == KindHeatCycle && cycleNumberOf(e) > cycle {
			return true
		}
		return isHeatCheck && e.Kind == KindPDCheck && cycleNumberOf(e) == cycle
	})

	if trigger.Kind == KindHeatCheckBeforePD {
		desc := "NO HEAT SIGNS DETECTED"
		if trigger.HeatVisible {
			desc = "HEAT SIGNS VISIBLE - NO AI PERFORMED"
		}
		appendEvent(t, Event{
			Kind:          KindHeatCycle,
			Title:         fmt.Sprintf(titleHeatCycleFmt, cycle),
			Description:   desc,
			Status:        StatusCompleted,
			ScheduledDate: heatDate,
			CompletedDate: &heatDate,
			AIStatus:      AINotDone,
			CycleNumber:   cycle,
			HeatVisible:   trigger.HeatVisible,
			HeatSigns:     append([]string(nil), trigger.HeatSigns...),
		}, now)

		if !trigger.HeatVisible {
			return
		}
	}

	next := cycle + 1
	start := addDays(heatDate, heatCycleDays)
	end := addDays(start, heatWindowDays)
	appendEvent(t, Event{
		Kind:             KindHeatCycle,
		Title:            fmt.Sprintf(titleHeatCycleFmt, next),
		Description:      descCheckHeatSigns,
		Status:           StatusPending,
		ScheduledDate:    start,
		ScheduledEndDate: &end,
		AIStatus:         AIPending,
		CycleNumber:      next,
	}, now)
}

// PDCheckInput es el resultado del diagnóstico de preñez.
type PDCheckInput struct {
	Status        EventStatus
	CompletedDate time.Time
	IsPregnant    bool
	AnimalType    AnimalType
}

func applyPDCheck(t *Timeline, idx int, in PDCheckInput, now time.Time) error {
	if !validStatus(in.Status) || in.CompletedDate.IsZero() {
		return ErrInvalidInput
	}
	if !validAnimalType(in.AnimalType) {
		return ErrInvalidInput
	}

	ev := &t.Events[idx]
	if ev.Kind != KindPDCheck {
		return ErrInvalidInput
	}

	// La gestación (o el próximo celo) se ancla a la última IA completada.
	anchor := lastAIEvent(*t)
	if anchor == nil {
		return ErrNoAnchorAI
	}
	aiDate := *anchor.CompletedDate

	pregnant := in.IsPregnant
	ev.Status = in.Status
	ev.CompletedDate = &in.CompletedDate
	ev.IsPregnant = &pregnant
	ev.AnimalType = in.AnimalType
	ev.UpdatedAt = now

	if in.IsPregnant {
		if hasPendingOfKind(*t, KindExpectedDelivery) {
			return nil // a lo sumo un parto esperado activo por timeline
		}
		appendEvent(t, Event{
			Kind:          KindExpectedDelivery,
			Title:         titleDelivery,
			Description:   "Expected delivery date based on AI and pregnancy confirmation",
			Status:        StatusPending,
			ScheduledDate: expectedDeliveryDate(aiDate, in.AnimalType),
			AnimalType:    in.AnimalType,
			AIDate:        &aiDate,
			PDCheckDate:   &in.CompletedDate,
		}, now)
		return nil
	}

	// No preñada: reprogramar el celo sobre la grilla de 21 días que nace
	// en la IA ancla, y reconciliar el número con lo ya presente.
	cyclesPassed := daysBetween(aiDate, in.CompletedDate) / heatCycleDays
	next := cyclesPassed + 2
	if n := maxHeatCycleNumber(*t) + 1; n > next {
		next = n
	}

	start := addDays(aiDate, (cyclesPassed+1)*heatCycleDays)
	end := addDays(start, 1)
	appendEvent(t, Event{
		Kind:             KindHeatCycle,
		Title:            fmt.Sprintf(titleHeatCycleFmt, next),
		Description:      "Next expected heat cycle after not pregnant result",
		Status:           StatusPending,
		ScheduledDate:    start,
		ScheduledEndDate: &end,
		AIStatus:         AIPending,
		AnimalType:       in.AnimalType,
		CycleNumber:      next,
	}, now)
	return nil
}

// lastAIEvent busca el evento de celo completado con IA hecha más reciente
// (máximo CompletedDate). Es el ancla para gestación y reprogramación.
func lastAIEvent(t Timeline) *Event {
	var anchor *Event
	for i := range t.Events {
		e := &t.Events[i]
		if e.Kind != KindFirstHeat && e.Kind != KindHeatCycle {
			continue
		}
		if e.AIStatus != AIDone || e.CompletedDate == nil {
			continue
		}
		if anchor == nil || e.CompletedDate.After(*anchor.CompletedDate) {
			anchor = e
		}
	}
	return anchor
}

func appendEvent(t *Timeline, e Event, now time.Time) {
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now
	t.Events = append(t.Events, e)
}

func removeEvents(t *Timeline, match func(Event) bool) {
	kept := t.Events[:0]
	for _, e := range t.Events {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	t.Events = kept
}

func hasPendingOfKind(t Timeline, kind EventKind) bool {
	for _, e := range t.Events {
		if e.Kind == kind && e.Status == StatusPending {
			return true
		}
	}
	return false
}

func hasPendingOfCycle(t Timeline, kind EventKind, cycle int) bool {
	for _, e := range t.Events {
		if e.Kind == kind && e.Status == StatusPending && cycleNumberOf(e) == cycle {
			return true
		}
	}
	return false
}

// hasPendingAfter detecta un equivalente pendiente agendado después de la
// fecha de la IA ancla (deduplicación determinista por fecha, no por orden
// de creación).
func hasPendingAfter(t Timeline, kind EventKind, aiDate time.Time) bool {
	for _, e := range t.Events {
		if e.Kind == kind && e.Status == StatusPending && e.ScheduledDate.After(aiDate) {
			return true
		}
	}
	return false
}
