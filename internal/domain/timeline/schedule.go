package timeline

import "time"

// Reglas de fechas del ciclo reproductivo. Todas las funciones son puras:
// aritmética de calendario estándar, sin zona horaria ni reloj.
const (
	daysUntilMedicine  = 15 // chequeo de útero tras el parto
	daysUntilDeworming = 20
	daysUntilFirstHeat = 35 // mínimo; la ventana real es 35-60 días

	daysHeatCheckAfterAI = 21
	daysPDCheckAfterAI   = 35

	// Largo nominal de un ciclo de celo.
	heatCycleDays = 21

	// Ventana de observación de celo (fin = inicio + 2 días).
	heatWindowDays = 2

	gestationCowMonths     = 9
	gestationCowDays       = 9
	gestationBuffaloMonths = 10
	gestationBuffaloDays   = 10
)

func addDays(d time.Time, days int) time.Time {
	return d.AddDate(0, 0, days)
}

func addMonthsDays(d time.Time, months, days int) time.Time {
	return d.AddDate(0, months, days)
}

// expectedDeliveryDate calcula el parto esperado desde la fecha de IA exitosa.
func expectedDeliveryDate(aiDate time.Time, animal AnimalType) time.Time {
	if animal == AnimalBuffalo {
		return addMonthsDays(aiDate, gestationBuffaloMonths, gestationBuffaloDays)
	}
	return addMonthsDays(aiDate, gestationCowMonths, gestationCowDays)
}

// daysBetween devuelve días calendario completos entre dos fechas (floor).
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}
