package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"cattle-breeding-timeline/internal/domain/cattle"
)

type cattleRepo struct {
	mu   sync.RWMutex
	byID map[string]cattle.Cattle
}

func NewCattleRepo() cattle.Repository {
	return &cattleRepo{
		byID: make(map[string]cattle.Cattle),
	}
}

func (r *cattleRepo) Create(ctx context.Context, c cattle.Cattle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(c.ID) == "" {
		return errors.New("cattle id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return cattle.ErrAlreadyExists
	}
	// TagNumber único por dueño.
	for _, other := range r.byID {
		if other.OwnerUserID == c.OwnerUserID && other.TagNumber == c.TagNumber {
			return cattle.ErrAlreadyExists
		}
	}
	r.byID[c.ID] = c
	return nil
}

func (r *cattleRepo) GetByID(ctx context.Context, id string) (cattle.Cattle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return cattle.Cattle{}, cattle.ErrNotFound
	}
	return c, nil
}

func (r *cattleRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]cattle.Cattle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]cattle.Cattle, 0)
	for _, c := range r.byID {
		if c.OwnerUserID == ownerUserID {
			out = append(out, c)
		}
	}

	// Orden estable por created_at asc (consistencia en dev)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}
