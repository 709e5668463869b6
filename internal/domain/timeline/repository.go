package timeline

import "context"

// Repository es el almacén de timelines. El timeline completo es la unidad
// de lectura y escritura; Save aplica chequeo optimista de Revision.
type Repository interface {
	// Create falla con ErrAlreadyExists si el animal ya tiene timeline.
	Create(ctx context.Context, t Timeline) error

	GetBySubject(ctx context.Context, cattleID string) (Timeline, error)

	// Save persiste el documento entero si la revisión guardada coincide
	// con t.Revision; devuelve el timeline con la revisión incrementada o
	// ErrConflict si otro save ganó la carrera.
	Save(ctx context.Context, t Timeline) (Timeline, error)
}
