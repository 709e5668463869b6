package timeline

import "errors"

var (
	// ErrInvalidInput cubre campos requeridos ausentes o malformados
	// (completed_date faltante, estado desconocido, especie no soportada).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound: timeline o evento inexistente (o de otro dueño).
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists: ya hay un timeline para ese animal.
	ErrAlreadyExists = errors.New("timeline already exists")

	// ErrNoAnchorAI: no hay IA completada que ancle gestación/reprogramación.
	ErrNoAnchorAI = errors.New("no completed AI event to anchor")

	// ErrConflict: la revisión guardada cambió entre load y save.
	ErrConflict = errors.New("timeline revision conflict")
)
