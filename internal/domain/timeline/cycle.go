package timeline

import (
	"regexp"
	"strconv"
)

// El número de ciclo se deriva siempre de hechos ya escritos en el timeline,
// nunca de un contador aparte que pueda divergir de esos hechos. Por eso se
// recalcula en cada resolución en vez de cachearse.

var heatCycleTitleRe = regexp.MustCompile(`Heat Cycle (\d+)`)

// cycleNumberOf devuelve el número de ciclo de un evento: el campo guardado
// manda; parsear el título es un fallback para registros viejos sin campo.
func cycleNumberOf(e Event) int {
	if e.CycleNumber > 0 {
		return e.CycleNumber
	}
	if m := heatCycleTitleRe.FindStringSubmatch(e.Title); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}

// resolveCycleNumber deriva el número de ciclo vigente para el evento que se
// está resolviendo. Precedencia (gana la primera que aplique):
//
//  1. El campo guardado del propio evento.
//  2. Si hay un first_heat completado: 1 + cantidad de heat_cycle completados;
//     si el evento es un heat_check_before_pd pasando a IA hecha, se suma 1
//     más porque él mismo va a quedar documentado como ciclo completado.
//  3. Máximo entre los números (campo o título) de los heat_cycle completados,
//     más 1. Sin ciclos completados ni first_heat: 1.
func resolveCycleNumber(t Timeline, e Event, toAIDone bool) int {
	if e.CycleNumber > 0 {
		return e.CycleNumber
	}

	var firstHeat *Event
	for i := range t.Events {
		if t.Events[i].Kind == KindFirstHeat && t.Events[i].Status == StatusCompleted {
			firstHeat = &t.Events[i]
			break
		}
	}

	completedCycles := 0
	maxCycle := 0
	for i := range t.Events {
		ev := t.Events[i]
		if ev.Kind != KindHeatCycle || ev.Status != StatusCompleted {
			continue
		}
		completedCycles++
		if n := cycleNumberOf(ev); n > maxCycle {
			maxCycle = n
		}
	}

	if firstHeat != nil {
		n := completedCycles
		if e.Kind == KindHeatCheckBeforePD && toAIDone {
			n++
		}
		return 1 + n
	}

	if maxCycle > 0 {
		return maxCycle + 1
	}
	return 1
}

// maxHeatCycleNumber devuelve el mayor número de ciclo presente entre los
// eventos heat_cycle del timeline (cualquier estado). 0 si no hay ninguno.
func maxHeatCycleNumber(t Timeline) int {
	max := 0
	for i := range t.Events {
		if t.Events[i].Kind != KindHeatCycle {
			continue
		}
		if n := cycleNumberOf(t.Events[i]); n > max {
			max = n
		}
	}
	return max
}
