package timeline

type EventKind string

const (
	KindMedicine          EventKind = "medicine"
	KindDeworming         EventKind = "deworming"
	KindFirstHeat         EventKind = "first_heat"
	KindHeatCycle         EventKind = "heat_cycle"
	KindHeatCheckBeforePD EventKind = "heat_check_before_pd"
	KindPDCheck           EventKind = "pd_check"
	KindExpectedDelivery  EventKind = "expected_delivery"
)

// IsHeatKind indica si el evento pertenece a la familia de celo
// (los únicos que llevan número de ciclo y estado de IA).
func (k EventKind) IsHeatKind() bool {
	return k == KindFirstHeat || k == KindHeatCycle || k == KindHeatCheckBeforePD
}

type EventStatus string

const (
	StatusPending   EventStatus = "pending"
	StatusCompleted EventStatus = "completed"
	StatusSkipped   EventStatus = "skipped"
)

func validStatus(s EventStatus) bool {
	return s == StatusPending || s == StatusCompleted || s == StatusSkipped
}

// AIStatus registra si se realizó inseminación artificial en un evento de celo.
type AIStatus string

const (
	AIPending AIStatus = "pending"
	AIDone    AIStatus = "done"
	AINotDone AIStatus = "not_done"
	AINoAI    AIStatus = "no_ai"
)

func validAIStatus(s AIStatus) bool {
	return s == AIPending || s == AIDone || s == AINotDone || s == AINoAI
}

// AnimalType es la especie del animal; define la duración de la gestación.
type AnimalType string

const (
	AnimalCow     AnimalType = "cow"
	AnimalBuffalo AnimalType = "buffalo"
)

func validAnimalType(a AnimalType) bool {
	return a == AnimalCow || a == AnimalBuffalo
}
