package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"cattle-breeding-timeline/internal/domain/timeline"
)

type timelineRepo struct {
	mu        sync.Mutex
	bySubject map[string]timeline.Timeline
}

func NewTimelineRepo() timeline.Repository {
	return &timelineRepo{
		bySubject: make(map[string]timeline.Timeline),
	}
}

func (r *timelineRepo) Create(ctx context.Context, t timeline.Timeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.CattleID) == "" {
		return errors.New("timeline id and cattle id required")
	}
	if _, exists := r.bySubject[t.CattleID]; exists {
		return timeline.ErrAlreadyExists
	}
	r.bySubject[t.CattleID] = t.Clone()
	return nil
}

func (r *timelineRepo) GetBySubject(ctx context.Context, cattleID string) (timeline.Timeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.bySubject[cattleID]
	if !ok {
		return timeline.Timeline{}, timeline.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *timelineRepo) Save(ctx context.Context, t timeline.Timeline) (timeline.Timeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bySubject[t.CattleID]
	if !ok {
		return timeline.Timeline{}, timeline.ErrNotFound
	}
	// Chequeo optimista: el save gana solo si nadie guardó en el medio.
	if stored.Revision != t.Revision {
		return timeline.Timeline{}, timeline.ErrConflict
	}

	next := t.Clone()
	next.Revision++
	r.bySubject[t.CattleID] = next
	return next.Clone(), nil
}
