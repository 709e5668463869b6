package cattle

import "context"

type Repository interface {
	Create(ctx context.Context, c Cattle) error
	GetByID(ctx context.Context, id string) (Cattle, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Cattle, error)
}
