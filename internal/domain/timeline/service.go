package timeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service es la fachada del timeline: valida, carga, invoca el motor de
// transiciones y persiste el documento completo. La autorización (dueño del
// animal) se resuelve en el handler, como en el resto de los módulos.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// CreateInitialEvents crea el timeline del animal con los tres eventos base
// calculados desde la fecha del último parto.
func (s *Service) CreateInitialEvents(ctx context.Context, cattleID, ownerUserID string, lastDelivery time.Time) (Timeline, error) {
	cattleID = strings.TrimSpace(cattleID)
	ownerUserID = strings.TrimSpace(ownerUserID)
	if cattleID == "" || ownerUserID == "" || lastDelivery.IsZero() {
		return Timeline{}, ErrInvalidInput
	}

	now := s.now()
	t := Timeline{
		ID:          uuid.NewString(),
		CattleID:    cattleID,
		OwnerUserID: ownerUserID,
		Events:      initialEvents(lastDelivery, now),
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return Timeline{}, err
	}
	return t, nil
}

func (s *Service) GetBySubject(ctx context.Context, cattleID string) (Timeline, error) {
	cattleID = strings.TrimSpace(cattleID)
	if cattleID == "" {
		return Timeline{}, ErrInvalidInput
	}
	return s.repo.GetBySubject(ctx, cattleID)
}

// ResolveEvent aplica la vía genérica (first_heat / heat_cycle, y cambio de
// estado simple de medicine/deworming).
func (s *Service) ResolveEvent(ctx context.Context, cattleID, eventID string, in ResolveInput) (Timeline, error) {
	return s.transition(ctx, cattleID, eventID, func(t *Timeline, idx int, now time.Time) error {
		return applyResolve(t, idx, in, now)
	})
}

// ResolveHeatCheck aplica la vía de chequeo de celo.
func (s *Service) ResolveHeatCheck(ctx context.Context, cattleID, eventID string, in HeatCheckInput) (Timeline, error) {
	return s.transition(ctx, cattleID, eventID, func(t *Timeline, idx int, now time.Time) error {
		return applyHeatCheck(t, idx, in, now)
	})
}

// ResolvePDCheck aplica el diagnóstico de preñez.
func (s *Service) ResolvePDCheck(ctx context.Context, cattleID, eventID string, in PDCheckInput) (Timeline, error) {
	return s.transition(ctx, cattleID, eventID, func(t *Timeline, idx int, now time.Time) error {
		return applyPDCheck(t, idx, in, now)
	})
}

// transition ejecuta load → motor → save. La transición corre sobre una
// copia, así un fallo del motor o del save no deja nada a medias. Ante un
// conflicto de revisión se recarga y recalcula una única vez.
func (s *Service) transition(ctx context.Context, cattleID, eventID string, apply func(*Timeline, int, time.Time) error) (Timeline, error) {
	cattleID = strings.TrimSpace(cattleID)
	eventID = strings.TrimSpace(eventID)
	if cattleID == "" || eventID == "" {
		return Timeline{}, ErrInvalidInput
	}

	for attempt := 0; ; attempt++ {
		stored, err := s.repo.GetBySubject(ctx, cattleID)
		if err != nil {
			return Timeline{}, err
		}

		idx := stored.indexOf(eventID)
		if idx < 0 {
			return Timeline{}, ErrNotFound
		}

		now := s.now()
		next := stored.Clone()
		if err := apply(&next, idx, now); err != nil {
			return Timeline{}, err
		}
		next.UpdatedAt = now

		saved, err := s.repo.Save(ctx, next)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, ErrConflict) || attempt >= 1 {
			return Timeline{}, err
		}
	}
}
