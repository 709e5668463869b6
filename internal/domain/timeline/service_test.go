package timeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	bySubject map[string]Timeline

	// conflictsLeft fuerza ErrConflict en los próximos N saves.
	conflictsLeft int
	saves         int
}

func newTestRepo() *testRepo {
	return &testRepo{bySubject: map[string]Timeline{}}
}

func (r *testRepo) Create(ctx context.Context, t Timeline) error {
	if _, ok := r.bySubject[t.CattleID]; ok {
		return ErrAlreadyExists
	}
	r.bySubject[t.CattleID] = t.Clone()
	return nil
}

func (r *testRepo) GetBySubject(ctx context.Context, cattleID string) (Timeline, error) {
	t, ok := r.bySubject[cattleID]
	if !ok {
		return Timeline{}, ErrNotFound
	}
	return t.Clone(), nil
}

func (r *testRepo) Save(ctx context.Context, t Timeline) (Timeline, error) {
	r.saves++
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return Timeline{}, ErrConflict
	}
	stored, ok := r.bySubject[t.CattleID]
	if !ok {
		return Timeline{}, ErrNotFound
	}
	if stored.Revision != t.Revision {
		return Timeline{}, ErrConflict
	}
	next := t.Clone()
	next.Revision = t.Revision + 1
	r.bySubject[t.CattleID] = next
	return next.Clone(), nil
}

// -------------------------
// Helpers
// -------------------------

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func newTestService(nowVal time.Time) (*Service, *testRepo) {
	repo := newTestRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return nowVal }
	return svc, repo
}

func findByKind(t Timeline, kind EventKind, status EventStatus) []Event {
	var out []Event
	for _, e := range t.Events {
		if e.Kind == kind && e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

func mustOne(t *testing.T, tl Timeline, kind EventKind, status EventStatus) Event {
	t.Helper()
	got := findByKind(tl, kind, status)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 %s/%s event, got %d", kind, status, len(got))
	}
	return got[0]
}

// assertNoDuplicatePending verifica que no haya dos eventos pendientes de
// celo con el mismo número de ciclo, y a lo sumo un pd_check y un parto
// esperado pendientes.
func assertNoDuplicatePending(t *testing.T, tl Timeline) {
	t.Helper()

	seen := map[int]EventKind{}
	for _, e := range tl.Events {
		if e.Status != StatusPending {
			continue
		}
		switch e.Kind {
		case KindHeatCycle, KindHeatCheckBeforePD:
			n := cycleNumberOf(e)
			if prev, ok := seen[n]; ok {
				t.Fatalf("two pending heat events for cycle %d (%s and %s)", n, prev, e.Kind)
			}
			seen[n] = e.Kind
		}
	}

	if got := findByKind(tl, KindPDCheck, StatusPending); len(got) > 1 {
		t.Fatalf("expected at most 1 pending pd_check, got %d", len(got))
	}
	if got := findByKind(tl, KindExpectedDelivery, StatusPending); len(got) > 1 {
		t.Fatalf("expected at most 1 pending expected_delivery, got %d", len(got))
	}
}

// -------------------------
// Creación inicial
// -------------------------

func TestService_CreateInitialEvents_Dates(t *testing.T) {
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)

	delivery := date(2024, 1, 1)
	tl, err := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", delivery)
	if err != nil {
		t.Fatalf("CreateInitialEvents error: %v", err)
	}

	if tl.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", tl.Revision)
	}
	if len(tl.Events) != 3 {
		t.Fatalf("expected 3 initial events, got %d", len(tl.Events))
	}

	med := mustOne(t, tl, KindMedicine, StatusPending)
	if !med.ScheduledDate.Equal(date(2024, 1, 16)) {
		t.Fatalf("medicine scheduled %v, want 2024-01-16", med.ScheduledDate)
	}
	dew := mustOne(t, tl, KindDeworming, StatusPending)
	if !dew.ScheduledDate.Equal(date(2024, 1, 21)) {
		t.Fatalf("deworming scheduled %v, want 2024-01-21", dew.ScheduledDate)
	}
	fh := mustOne(t, tl, KindFirstHeat, StatusPending)
	if !fh.ScheduledDate.Equal(date(2024, 2, 5)) {
		t.Fatalf("first heat scheduled %v, want 2024-02-05", fh.ScheduledDate)
	}
	if fh.AIStatus != AIPending {
		t.Fatalf("first heat ai_status %s, want pending", fh.AIStatus)
	}
	if fh.CycleNumber != 1 {
		t.Fatalf("first heat cycle %d, want 1", fh.CycleNumber)
	}
}

func TestService_CreateInitialEvents_Duplicate(t *testing.T) {
	svc, _ := newTestService(time.Now())

	if _, err := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1)); err != nil {
		t.Fatalf("first create error: %v", err)
	}
	_, err := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestService_CreateInitialEvents_Validation(t *testing.T) {
	svc, _ := newTestService(time.Now())

	cases := []struct {
		name     string
		cattleID string
		userID   string
		delivery time.Time
	}{
		{"empty cattle", "", "user-1", date(2024, 1, 1)},
		{"empty user", "cow-1", "", date(2024, 1, 1)},
		{"zero delivery", "cow-1", "user-1", time.Time{}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateInitialEvents(context.Background(), tc.cattleID, tc.userID, tc.delivery); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

// -------------------------
// Resolución genérica
// -------------------------

func TestService_ResolveMedicine_NoFollowups(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	med := mustOne(t, tl, KindMedicine, StatusPending)

	got, err := svc.ResolveEvent(context.Background(), "cow-1", med.ID, ResolveInput{
		Status:        StatusCompleted,
		CompletedDate: datePtr(2024, 1, 16),
	})
	if err != nil {
		t.Fatalf("ResolveEvent error: %v", err)
	}
	if len(got.Events) != 3 {
		t.Fatalf("medicine resolution must not add events, got %d", len(got.Events))
	}
	mustOne(t, got, KindMedicine, StatusCompleted)
	if got.Revision != 2 {
		t.Fatalf("expected revision 2, got %d", got.Revision)
	}
}

func TestService_ResolveEvent_RequiresCompletedDate(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	med := mustOne(t, tl, KindMedicine, StatusPending)

	_, err := svc.ResolveEvent(context.Background(), "cow-1", med.ID, ResolveInput{Status: StatusCompleted})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_ResolveEvent_UnknownEvent(t *testing.T) {
	svc, _ := newTestService(time.Now())
	_, _ = svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))

	_, err := svc.ResolveEvent(context.Background(), "cow-1", "nope", ResolveInput{
		Status:        StatusCompleted,
		CompletedDate: datePtr(2024, 1, 16),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_ResolveFirstHeat_AIDone_SchedulesPair(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	fh := mustOne(t, tl, KindFirstHeat, StatusPending)

	got, err := svc.ResolveEvent(context.Background(), "cow-1", fh.ID, ResolveInput{
		Status:           StatusCompleted,
		CompletedDate:    datePtr(2024, 2, 10),
		AIStatus:         AIDone,
		SemenBullDetails: "HF-2214",
	})
	if err != nil {
		t.Fatalf("ResolveEvent error: %v", err)
	}

	hc := mustOne(t, got, KindHeatCheckBeforePD, StatusPending)
	if !hc.ScheduledDate.Equal(date(2024, 3, 2)) {
		t.Fatalf("heat check scheduled %v, want 2024-03-02", hc.ScheduledDate)
	}
	if hc.CycleNumber != 1 {
		t.Fatalf("heat check cycle %d, want 1", hc.CycleNumber)
	}

	pd := mustOne(t, got, KindPDCheck, StatusPending)
	if !pd.ScheduledDate.Equal(date(2024, 3, 16)) {
		t.Fatalf("pd check scheduled %v, want 2024-03-16", pd.ScheduledDate)
	}
	if pd.CycleNumber != 1 {
		t.Fatalf("pd check cycle %d, want 1", pd.CycleNumber)
	}

	resolved := mustOne(t, got, KindFirstHeat, StatusCompleted)
	if resolved.SemenBullDetails != "HF-2214" {
		t.Fatalf("semen details not recorded: %q", resolved.SemenBullDetails)
	}
	assertNoDuplicatePending(t, got)
}

func TestService_ResolveFirstHeat_AIDone_Idempotent(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	fh := mustOne(t, tl, KindFirstHeat, StatusPending)

	in := ResolveInput{
		Status:        StatusCompleted,
		CompletedDate: datePtr(2024, 2, 10),
		AIStatus:      AIDone,
	}
	if _, err := svc.ResolveEvent(context.Background(), "cow-1", fh.ID, in); err != nil {
		t.Fatalf("first resolve error: %v", err)
	}
	got, err := svc.ResolveEvent(context.Background(), "cow-1", fh.ID, in)
	if err != nil {
		t.Fatalf("second resolve error: %v", err)
	}

	mustOne(t, got, KindHeatCheckBeforePD, StatusPending)
	mustOne(t, got, KindPDCheck, StatusPending)
	assertNoDuplicatePending(t, got)
}

func TestService_ResolveFirstHeat_HeatSeenNoAI(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	fh := mustOne(t, tl, KindFirstHeat, StatusPending)

	got, err := svc.ResolveEvent(context.Background(), "cow-1", fh.ID, ResolveInput{
		Status:        StatusCompleted,
		CompletedDate: datePtr(2024, 2, 8),
		AIStatus:      AINotDone,
		HeatDate:      datePtr(2024, 2, 8),
	})
	if err != nil {
		t.Fatalf("ResolveEvent error: %v", err)
	}

	// Sin IA no hay chequeos de preñez, solo el próximo celo esperado.
	if n := len(findByKind(got, KindHeatCheckBeforePD, StatusPending)); n != 0 {
		t.Fatalf("expected no pending heat check, got %d", n)
	}
	next := mustOne(t, got, KindHeatCycle, StatusPending)
	if !next.ScheduledDate.Equal(date(2024, 2, 29)) {
		t.Fatalf("next heat scheduled %v, want 2024-02-29", next.ScheduledDate)
	}
	if next.CycleNumber != 2 {
		t.Fatalf("next heat cycle %d, want 2", next.CycleNumber)
	}
	assertNoDuplicatePending(t, got)
}

// -------------------------
// Chequeo de celo
// -------------------------

// avanza un timeline recién creado hasta tener el par heat check + pd check
// anclado a una IA en la fecha dada.
func setupAfterFirstAI(t *testing.T, svc *Service, cattleID string, aiDate time.Time) Timeline {
	t.Helper()
	tl, err := svc.CreateInitialEvents(context.Background(), cattleID, "user-1", date(2024, 1, 1))
	if err != nil {
		t.Fatalf("CreateInitialEvents error: %v", err)
	}
	fh := mustOne(t, tl, KindFirstHeat, StatusPending)
	got, err := svc.ResolveEvent(context.Background(), cattleID, fh.ID, ResolveInput{
		Status:        StatusCompleted,
		CompletedDate: &aiDate,
		AIStatus:      AIDone,
	})
	if err != nil {
		t.Fatalf("resolve first heat error: %v", err)
	}
	return got
}

func TestService_HeatCheck_AIDone_SchedulesNewPair(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl := setupAfterFirstAI(t, svc, "cow-1", date(2024, 2, 10))
	hc := mustOne(t, tl, KindHeatCheckBeforePD, StatusPending)

	newAI := date(2024, 3, 3)
	visible := true
	got, err := svc.ResolveHeatCheck(context.Background(), "cow-1", hc.ID, HeatCheckInput{
		Status:           StatusCompleted,
		CompletedDate:    &newAI,
		HeatVisible:      &visible,
		HeatSigns:        []string{"mounting", "restlessness"},
		AIStatus:         AIDone,
		SemenBullDetails: "HF-9001",
	})
	if err != nil {
		t.Fatalf("ResolveHeatCheck error: %v", err)
	}

	// El nuevo celo queda documentado como ciclo completado.
	record := mustOne(t, got, KindHeatCycle, StatusCompleted)
	if record.CycleNumber != 2 {
		t.Fatalf("completed cycle record %d, want 2", record.CycleNumber)
	}
	if record.Description != "AI PERFORMED - Bull: HF-9001" {
		t.Fatalf("unexpected record description %q", record.Description)
	}
	if !record.CompletedDate.Equal(newAI) {
		t.Fatalf("record completed %v, want %v", record.CompletedDate, newAI)
	}

	// El pd_check viejo fue retirado; el par nuevo cuelga de la nueva IA.
	hc2 := mustOne(t, got, KindHeatCheckBeforePD, StatusPending)
	if !hc2.ScheduledDate.Equal(date(2024, 3, 24)) {
		t.Fatalf("new heat check scheduled %v, want 2024-03-24", hc2.ScheduledDate)
	}
	pd2 := mustOne(t, got, KindPDCheck, StatusPending)
	if !pd2.ScheduledDate.Equal(date(2024, 4, 7)) {
		t.Fatalf("new pd check scheduled %v, want 2024-04-07", pd2.ScheduledDate)
	}
	if hc2.CycleNumber != 2 || pd2.CycleNumber != 2 {
		t.Fatalf("new pair cycles %d/%d, want 2/2", hc2.CycleNumber, pd2.CycleNumber)
	}
	assertNoDuplicatePending(t, got)
}

func TestService_HeatCheck_AIDone_RetiresRescheduledHeatCycle(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()
	tl := setupAfterFirstAI(t, svc, "cow-1", date(2024, 2, 10))

	// El PD llega antes que el chequeo de celo y da negativo: queda un
	// celo reprogramado pendiente además del chequeo original.
	pd := mustOne(t, tl, KindPDCheck, StatusPending)
	tl, err := svc.ResolvePDCheck(ctx, "cow-1", pd.ID, PDCheckInput{
		Status:        StatusCompleted,
		CompletedDate: date(2024, 2, 25),
		IsPregnant:    false,
		AnimalType:    AnimalCow,
	})
	if err != nil {
		t.Fatalf("pd check error: %v", err)
	}
	mustOne(t, tl, KindHeatCycle, StatusPending)

	// Una IA en el chequeo original supera al celo reprogramado: debe
	// quedar solo el par nuevo colgado de esta IA.
	hc := mustOne(t, tl, KindHeatCheckBeforePD, StatusPending)
	aiDate := date(2024, 3, 5)
	visible := true
	tl, err = svc.ResolveHeatCheck(ctx, "cow-1", hc.ID, HeatCheckInput{
		Status:        StatusCompleted,
		CompletedDate: &aiDate,
		HeatVisible:   &visible,
		AIStatus:      AIDone,
	})
	if err != nil {
		t.Fatalf("heat check error: %v", err)
	}

	if n := len(findByKind(tl, KindHeatCycle, StatusPending)); n != 0 {
		t.Fatalf("rescheduled heat cycle must be retired after AI, got %d pending", n)
	}
	mustOne(t, tl, KindHeatCheckBeforePD, StatusPending)
	mustOne(t, tl, KindPDCheck, StatusPending)
	assertNoDuplicatePending(t, tl)
}

func TestService_HeatCheck_NoAI_NoSigns_GoesDormant(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl := setupAfterFirstAI(t, svc, "cow-1", date(2024, 2, 10))
	hc := mustOne(t, tl, KindHeatCheckBeforePD, StatusPending)

	checkDate := date(2024, 3, 2)
	visible := false
	got, err := svc.ResolveHeatCheck(context.Background(), "cow-1", hc.ID, HeatCheckInput{
		Status:        StatusCompleted,
		CompletedDate: &checkDate,
		HeatVisible:   &visible,
		AIStatus:      AINotDone,
	})
	if err != nil {
		t.Fatalf("ResolveHeatCheck error: %v", err)
	}

	record := mustOne(t, got, KindHeatCycle, StatusCompleted)
	if record.Description != "NO HEAT SIGNS DETECTED" {
		t.Fatalf("unexpected record description %q", record.Description)
	}

	// Sin señales el timeline queda inactivo: nada de celo pendiente.
	if n := len(findByKind(got, KindHeatCycle, StatusPending)); n != 0 {
		t.Fatalf("expected no pending heat cycle, got %d", n)
	}
	if n := len(findByKind(got, KindHeatCheckBeforePD, StatusPending)); n != 0 {
		t.Fatalf("expected no pending heat check, got %d", n)
	}
}

func TestService_HeatCheck_NoAI_SignsVisible_SchedulesNextCycle(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl := setupAfterFirstAI(t, svc, "cow-1", date(2024, 2, 10))
	hc := mustOne(t, tl, KindHeatCheckBeforePD, StatusPending)

	heatDate := date(2024, 3, 2)
	visible := true
	got, err := svc.ResolveHeatCheck(context.Background(), "cow-1", hc.ID, HeatCheckInput{
		Status:        StatusCompleted,
		CompletedDate: &heatDate,
		HeatVisible:   &visible,
		HeatSigns:     []string{"mucus discharge"},
		AIStatus:      AINotDone,
	})
	if err != nil {
		t.Fatalf("ResolveHeatCheck error: %v", err)
	}

	record := mustOne(t, got, KindHeatCycle, StatusCompleted)
	if record.Description != "HEAT SIGNS VISIBLE - NO AI PERFORMED" {
		t.Fatalf("unexpected record description %q", record.Description)
	}
	if !record.HeatVisible {
		t.Fatalf("record should keep heat_visible=true")
	}

	next := mustOne(t, got, KindHeatCycle, StatusPending)
	if !next.ScheduledDate.Equal(date(2024, 3, 23)) {
		t.Fatalf("next heat scheduled %v, want 2024-03-23", next.ScheduledDate)
	}
	if next.ScheduledEndDate == nil || !next.ScheduledEndDate.Equal(date(2024, 3, 25)) {
		t.Fatalf("next heat window end %v, want 2024-03-25", next.ScheduledEndDate)
	}
	assertNoDuplicatePending(t, got)
}

func TestService_HeatCheck_NoAI_RetiresPDCheckOfCycle(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl := setupAfterFirstAI(t, svc, "cow-1", date(2024, 2, 10))
	hc := mustOne(t, tl, KindHeatCheckBeforePD, StatusPending)

	heatDate := date(2024, 3, 2)
	visible := true
	got, err := svc.ResolveHeatCheck(context.Background(), "cow-1", hc.ID, HeatCheckInput{
		Status:        StatusCompleted,
		CompletedDate: &heatDate,
		HeatVisible:   &visible,
		AIStatus:      AINotDone,
	})
	if err != nil {
		t.Fatalf("ResolveHeatCheck error: %v", err)
	}

	// Sin IA no hay preñez posible en este ciclo: el diagnóstico que
	// colgaba de la IA anterior se retira junto con el chequeo.
	if n := len(findByKind(got, KindPDCheck, StatusPending)); n != 0 {
		t.Fatalf("pd check of resolved cycle must be retired, got %d pending", n)
	}
	mustOne(t, got, KindHeatCycle, StatusPending)
	assertNoDuplicatePending(t, got)
}

func TestService_HeatCheck_WrongKind(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	med := mustOne(t, tl, KindMedicine, StatusPending)

	completed := date(2024, 1, 16)
	_, err := svc.ResolveHeatCheck(context.Background(), "cow-1", med.ID, HeatCheckInput{
		Status:        StatusCompleted,
		CompletedDate: &completed,
		AIStatus:      AINotDone,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// -------------------------
// Diagnóstico de preñez
// -------------------------

func TestService_PDCheck_Pregnant_Cow(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl := setupAfterFirstAI(t, svc, "cow-1", date(2024, 2, 10))
	pd := mustOne(t, tl, KindPDCheck, StatusPending)

	got, err := svc.ResolvePDCheck(context.Background(), "cow-1", pd.ID, PDCheckInput{
		Status:        StatusCompleted,
		CompletedDate: date(2024, 3, 16),
		IsPregnant:    true,
		AnimalType:    AnimalCow,
	})
	if err != nil {
		t.Fatalf("ResolvePDCheck error: %v", err)
	}

	del := mustOne(t, got, KindExpectedDelivery, StatusPending)
	if !del.ScheduledDate.Equal(date(2024, 11, 19)) {
		t.Fatalf("expected delivery %v, want 2024-11-19", del.ScheduledDate)
	}
	if del.AIDate == nil || !del.AIDate.Equal(date(2024, 2, 10)) {
		t.Fatalf("delivery ai_date %v, want 2024-02-10", del.AIDate)
	}
	if del.PDCheckDate == nil || !del.PDCheckDate.Equal(date(2024, 3, 16)) {
		t.Fatalf("delivery pd_check_date %v, want 2024-03-16", del.PDCheckDate)
	}
	resolved := mustOne(t, got, KindPDCheck, StatusCompleted)
	if resolved.IsPregnant == nil || !*resolved.IsPregnant {
		t.Fatalf("pd check should record is_pregnant=true")
	}
}

func TestService_PDCheck_Pregnant_Buffalo(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl := setupAfterFirstAI(t, svc, "buf-1", date(2024, 2, 10))
	pd := mustOne(t, tl, KindPDCheck, StatusPending)

	got, err := svc.ResolvePDCheck(context.Background(), "buf-1", pd.ID, PDCheckInput{
		Status:        StatusCompleted,
		CompletedDate: date(2024, 3, 16),
		IsPregnant:    true,
		AnimalType:    AnimalBuffalo,
	})
	if err != nil {
		t.Fatalf("ResolvePDCheck error: %v", err)
	}

	del := mustOne(t, got, KindExpectedDelivery, StatusPending)
	if !del.ScheduledDate.Equal(date(2024, 12, 20)) {
		t.Fatalf("expected delivery %v, want 2024-12-20", del.ScheduledDate)
	}
}

func TestService_PDCheck_Pregnant_SingleDelivery(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl := setupAfterFirstAI(t, svc, "cow-1", date(2024, 2, 10))
	pd := mustOne(t, tl, KindPDCheck, StatusPending)

	in := PDCheckInput{
		Status:        StatusCompleted,
		CompletedDate: date(2024, 3, 16),
		IsPregnant:    true,
		AnimalType:    AnimalCow,
	}
	if _, err := svc.ResolvePDCheck(context.Background(), "cow-1", pd.ID, in); err != nil {
		t.Fatalf("first pd check error: %v", err)
	}
	got, err := svc.ResolvePDCheck(context.Background(), "cow-1", pd.ID, in)
	if err != nil {
		t.Fatalf("second pd check error: %v", err)
	}

	mustOne(t, got, KindExpectedDelivery, StatusPending)
}

func TestService_PDCheck_NotPregnant_ReschedulesOnGrid(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl := setupAfterFirstAI(t, svc, "cow-1", date(2024, 2, 10))
	pd := mustOne(t, tl, KindPDCheck, StatusPending)

	// 50 días después de la IA: pasaron 2 ciclos completos de 21 días.
	got, err := svc.ResolvePDCheck(context.Background(), "cow-1", pd.ID, PDCheckInput{
		Status:        StatusCompleted,
		CompletedDate: date(2024, 3, 31),
		IsPregnant:    false,
		AnimalType:    AnimalCow,
	})
	if err != nil {
		t.Fatalf("ResolvePDCheck error: %v", err)
	}

	if n := len(findByKind(got, KindExpectedDelivery, StatusPending)); n != 0 {
		t.Fatalf("not pregnant must not schedule delivery, got %d", n)
	}

	next := mustOne(t, got, KindHeatCycle, StatusPending)
	// Siguiente punto de la grilla de 21 días desde la IA: 2024-02-10 + 63.
	if !next.ScheduledDate.Equal(date(2024, 4, 13)) {
		t.Fatalf("next heat scheduled %v, want 2024-04-13", next.ScheduledDate)
	}
	if next.ScheduledEndDate == nil || !next.ScheduledEndDate.Equal(date(2024, 4, 14)) {
		t.Fatalf("next heat window end %v, want 2024-04-14", next.ScheduledEndDate)
	}
	if next.CycleNumber != 4 {
		t.Fatalf("next heat cycle %d, want 4", next.CycleNumber)
	}
	assertNoDuplicatePending(t, got)
}

func TestService_PDCheck_NoAnchorAI(t *testing.T) {
	svc, repo := newTestService(time.Now())

	// Timeline sembrado a mano: hay un pd_check pero ninguna IA completada.
	pdID := "ev-pd"
	repo.bySubject["cow-1"] = Timeline{
		ID:       "tl-1",
		CattleID: "cow-1",
		Revision: 1,
		Events: []Event{
			{ID: pdID, Kind: KindPDCheck, Status: StatusPending, ScheduledDate: date(2024, 3, 16)},
		},
	}

	_, err := svc.ResolvePDCheck(context.Background(), "cow-1", pdID, PDCheckInput{
		Status:        StatusCompleted,
		CompletedDate: date(2024, 3, 16),
		IsPregnant:    true,
		AnimalType:    AnimalCow,
	})
	if !errors.Is(err, ErrNoAnchorAI) {
		t.Fatalf("expected ErrNoAnchorAI, got %v", err)
	}
}

func TestService_PDCheck_WrongKind(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	med := mustOne(t, tl, KindMedicine, StatusPending)

	_, err := svc.ResolvePDCheck(context.Background(), "cow-1", med.ID, PDCheckInput{
		Status:        StatusCompleted,
		CompletedDate: date(2024, 1, 16),
		IsPregnant:    true,
		AnimalType:    AnimalCow,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// -------------------------
// Concurrencia y atomicidad
// -------------------------

func TestService_Transition_RetriesOnceOnConflict(t *testing.T) {
	svc, repo := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	med := mustOne(t, tl, KindMedicine, StatusPending)

	repo.conflictsLeft = 1
	got, err := svc.ResolveEvent(context.Background(), "cow-1", med.ID, ResolveInput{
		Status:        StatusCompleted,
		CompletedDate: datePtr(2024, 1, 16),
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	mustOne(t, got, KindMedicine, StatusCompleted)
	if repo.saves != 2 {
		t.Fatalf("expected 2 save attempts, got %d", repo.saves)
	}
}

func TestService_Transition_GivesUpAfterSecondConflict(t *testing.T) {
	svc, repo := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	med := mustOne(t, tl, KindMedicine, StatusPending)

	repo.conflictsLeft = 2
	_, err := svc.ResolveEvent(context.Background(), "cow-1", med.ID, ResolveInput{
		Status:        StatusCompleted,
		CompletedDate: datePtr(2024, 1, 16),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestService_FailedTransition_LeavesTimelineUntouched(t *testing.T) {
	svc, repo := newTestService(time.Now())
	tl, _ := svc.CreateInitialEvents(context.Background(), "cow-1", "user-1", date(2024, 1, 1))
	fh := mustOne(t, tl, KindFirstHeat, StatusPending)

	// Input inválido: el motor falla y nada debe persistirse.
	_, err := svc.ResolveEvent(context.Background(), "cow-1", fh.ID, ResolveInput{Status: EventStatus("bogus")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	stored := repo.bySubject["cow-1"]
	if stored.Revision != 1 {
		t.Fatalf("failed transition must not bump revision, got %d", stored.Revision)
	}
	mustOne(t, stored, KindFirstHeat, StatusPending)
}

// -------------------------
// Ciclo de vida completo
// -------------------------

// Recorre varios ciclos (IA fallida, re-IA, PD negativo, celo sin señales,
// re-IA, PD positivo) verificando en cada paso que nunca queden dos eventos
// de celo pendientes para el mismo ciclo.
func TestService_FullLifecycle_KeepsInvariants(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()

	tl, err := svc.CreateInitialEvents(ctx, "cow-1", "user-1", date(2024, 1, 1))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	assertNoDuplicatePending(t, tl)

	// 1. Primer celo con IA.
	fh := mustOne(t, tl, KindFirstHeat, StatusPending)
	tl, err = svc.ResolveEvent(ctx, "cow-1", fh.ID, ResolveInput{
		Status:        StatusCompleted,
		CompletedDate: datePtr(2024, 2, 10),
		AIStatus:      AIDone,
	})
	if err != nil {
		t.Fatalf("step 1 error: %v", err)
	}
	assertNoDuplicatePending(t, tl)

	// 2. En el chequeo pre-PD la vaca volvió a entrar en celo: nueva IA.
	hc := mustOne(t, tl, KindHeatCheckBeforePD, StatusPending)
	visible := true
	tl, err = svc.ResolveHeatCheck(ctx, "cow-1", hc.ID, HeatCheckInput{
		Status:        StatusCompleted,
		CompletedDate: datePtr(2024, 3, 3),
		HeatVisible:   &visible,
		AIStatus:      AIDone,
	})
	if err != nil {
		t.Fatalf("step 2 error: %v", err)
	}
	assertNoDuplicatePending(t, tl)

	// 3. PD negativo: reprogramar sobre la grilla de la última IA.
	pd := mustOne(t, tl, KindPDCheck, StatusPending)
	tl, err = svc.ResolvePDCheck(ctx, "cow-1", pd.ID, PDCheckInput{
		Status:        StatusCompleted,
		CompletedDate: date(2024, 4, 7),
		IsPregnant:    false,
		AnimalType:    AnimalCow,
	})
	if err != nil {
		t.Fatalf("step 3 error: %v", err)
	}
	assertNoDuplicatePending(t, tl)

	// 4. El celo reprogramado llega con señales y nueva IA.
	next := mustOne(t, tl, KindHeatCycle, StatusPending)
	tl, err = svc.ResolveHeatCheck(ctx, "cow-1", next.ID, HeatCheckInput{
		Status:           StatusCompleted,
		CompletedDate:    datePtr(2024, 4, 14),
		HeatVisible:      &visible,
		AIStatus:         AIDone,
		SemenBullDetails: "HF-7777",
	})
	if err != nil {
		t.Fatalf("step 4 error: %v", err)
	}
	assertNoDuplicatePending(t, tl)

	// 5. PD positivo: parto esperado y nada más pendiente de preñez.
	pd = mustOne(t, tl, KindPDCheck, StatusPending)
	tl, err = svc.ResolvePDCheck(ctx, "cow-1", pd.ID, PDCheckInput{
		Status:        StatusCompleted,
		CompletedDate: date(2024, 5, 19),
		IsPregnant:    true,
		AnimalType:    AnimalCow,
	})
	if err != nil {
		t.Fatalf("step 5 error: %v", err)
	}
	assertNoDuplicatePending(t, tl)

	del := mustOne(t, tl, KindExpectedDelivery, StatusPending)
	// Última IA: 2024-04-14; vaca: +9 meses +9 días.
	if !del.ScheduledDate.Equal(date(2025, 1, 23)) {
		t.Fatalf("expected delivery %v, want 2025-01-23", del.ScheduledDate)
	}
}

// Resuelve eventos pendientes en orden aleatorio con resultados aleatorios
// válidos y verifica tras cada transición que nunca queden dos eventos de
// celo pendientes para el mismo ciclo, sea cual sea el recorrido.
func TestService_RandomResolutionOrder_KeepsInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			svc, _ := newTestService(time.Now())
			ctx := context.Background()

			tl, err := svc.CreateInitialEvents(ctx, "cow-1", "user-1", date(2024, 1, 1))
			if err != nil {
				t.Fatalf("create error: %v", err)
			}
			assertNoDuplicatePending(t, tl)

			clock := date(2024, 1, 1)
			for step := 0; step < 40; step++ {
				var pending []Event
				for _, e := range tl.Events {
					if e.Status == StatusPending {
						pending = append(pending, e)
					}
				}
				if len(pending) == 0 {
					break
				}
				ev := pending[rng.Intn(len(pending))]

				// El reloj avanza hasta la fecha agendada del evento
				// elegido más un corrimiento chico, como un reporte real
				// que llega con días de demora.
				if ev.ScheduledDate.After(clock) {
					clock = ev.ScheduledDate
				}
				clock = addDays(clock, rng.Intn(5))
				completed := clock

				switch ev.Kind {
				case KindMedicine, KindDeworming, KindExpectedDelivery:
					tl, err = svc.ResolveEvent(ctx, "cow-1", ev.ID, ResolveInput{
						Status:        StatusCompleted,
						CompletedDate: &completed,
					})
				case KindFirstHeat:
					if rng.Intn(2) == 0 {
						tl, err = svc.ResolveEvent(ctx, "cow-1", ev.ID, ResolveInput{
							Status:        StatusCompleted,
							CompletedDate: &completed,
							AIStatus:      AIDone,
						})
					} else {
						tl, err = svc.ResolveEvent(ctx, "cow-1", ev.ID, ResolveInput{
							Status:        StatusCompleted,
							CompletedDate: &completed,
							AIStatus:      AINotDone,
							HeatDate:      &completed,
						})
					}
				case KindHeatCheckBeforePD, KindHeatCycle:
					visible := rng.Intn(2) == 0
					ai := AINotDone
					if visible && rng.Intn(2) == 0 {
						ai = AIDone
					}
					tl, err = svc.ResolveHeatCheck(ctx, "cow-1", ev.ID, HeatCheckInput{
						Status:        StatusCompleted,
						CompletedDate: &completed,
						HeatVisible:   &visible,
						AIStatus:      ai,
					})
				case KindPDCheck:
					tl, err = svc.ResolvePDCheck(ctx, "cow-1", ev.ID, PDCheckInput{
						Status:        StatusCompleted,
						CompletedDate: completed,
						IsPregnant:    rng.Intn(2) == 0,
						AnimalType:    AnimalCow,
					})
				}
				if err != nil {
					t.Fatalf("step %d: resolving %s: %v", step, ev.Kind, err)
				}
				assertNoDuplicatePending(t, tl)
			}
		})
	}
}
