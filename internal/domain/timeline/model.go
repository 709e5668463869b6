package timeline

import "time"

// Event es una ocurrencia programada o completada dentro del timeline.
// Las fechas de calendario (scheduled/completed/heat) se guardan como
// time.Time a medianoche UTC; no son instantes.
type Event struct {
	ID string

	Kind        EventKind
	Title       string
	Description string
	Status      EventStatus

	ScheduledDate    time.Time
	ScheduledEndDate *time.Time
	CompletedDate    *time.Time

	// Solo significativo para eventos de celo.
	AIStatus         AIStatus
	CycleNumber      int // 0 = sin asignar
	HeatDate         *time.Time
	HeatVisible      bool
	HeatSigns        []string
	SemenBullDetails string

	// Campos de auditoría de pd_check / expected_delivery.
	AnimalType  AnimalType
	AIDate      *time.Time
	PDCheckDate *time.Time
	IsPregnant  *bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Timeline es la colección ordenada de eventos de un animal.
// Existe a lo sumo uno por (owner, animal) y es la unidad de mutación
// atómica: se carga y se guarda completo, con chequeo de Revision.
type Timeline struct {
	ID          string
	CattleID    string
	OwnerUserID string

	// Orden de inserción. El orden NO es semántico: la identidad de ciclo
	// la lleva CycleNumber, nunca la posición.
	Events []Event

	Revision int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone devuelve una copia profunda. El motor de transiciones trabaja
// siempre sobre una copia para que ninguna transición quede a medias
// visible si algo falla antes de persistir.
func (t Timeline) Clone() Timeline {
	out := t
	out.Events = make([]Event, len(t.Events))
	for i, e := range t.Events {
		out.Events[i] = cloneEvent(e)
	}
	return out
}

func cloneEvent(e Event) Event {
	c := e
	c.ScheduledEndDate = cloneDate(e.ScheduledEndDate)
	c.CompletedDate = cloneDate(e.CompletedDate)
	c.HeatDate = cloneDate(e.HeatDate)
	c.AIDate = cloneDate(e.AIDate)
	c.PDCheckDate = cloneDate(e.PDCheckDate)
	if e.IsPregnant != nil {
		v := *e.IsPregnant
		c.IsPregnant = &v
	}
	if e.HeatSigns != nil {
		c.HeatSigns = append([]string(nil), e.HeatSigns...)
	}
	return c
}

func cloneDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// indexOf ubica un evento por su ID estable. -1 si no está.
func (t Timeline) indexOf(eventID string) int {
	for i := range t.Events {
		if t.Events[i].ID == eventID {
			return i
		}
	}
	return -1
}
