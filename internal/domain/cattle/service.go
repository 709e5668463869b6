package cattle

import (
	"context"
	"errors"
	"strings"
	"time"

	"cattle-breeding-timeline/internal/ports/wallet"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound: animal inexistente.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists: tag_number repetido para el mismo dueño.
	ErrAlreadyExists = errors.New("cattle already exists")
)

type Service struct {
	repo   Repository
	wallet wallet.Wallet

	// Precio en monedas del registro de un animal; 0 = sin cobro.
	createPrice int

	now func() time.Time
}

func NewService(repo Repository, w wallet.Wallet, createPrice int) *Service {
	return &Service{
		repo:        repo,
		wallet:      w,
		createPrice: createPrice,
		now:         time.Now,
	}
}

type CreateInput struct {
	Type               string
	Breed              string
	TagNumber          string
	NickName           string
	DateOfLastDelivery time.Time
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Cattle, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Cattle{}, ErrInvalidInput
	}

	sp := Species(strings.ToLower(strings.TrimSpace(in.Type)))
	breed := strings.TrimSpace(in.Breed)
	if !ValidBreed(sp, breed) {
		return Cattle{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.TagNumber) == "" {
		return Cattle{}, ErrInvalidInput
	}
	if in.DateOfLastDelivery.IsZero() {
		return Cattle{}, ErrInvalidInput
	}

	// El registro es una acción paga: se descuenta antes de crear.
	if s.createPrice > 0 && s.wallet != nil {
		if err := s.wallet.Debit(ctx, ownerUserID, s.createPrice, "cattle registration"); err != nil {
			return Cattle{}, err
		}
	}

	c := Cattle{
		ID:                 uuid.NewString(),
		OwnerUserID:        ownerUserID,
		Type:               sp,
		Breed:              breed,
		TagNumber:          strings.TrimSpace(in.TagNumber),
		NickName:           strings.TrimSpace(in.NickName),
		DateOfLastDelivery: in.DateOfLastDelivery,
		CreatedAt:          s.now(),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return Cattle{}, err
	}
	return c, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Cattle, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Cattle, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

// OwnerOf expone el dueño de un animal sin acoplar otros módulos al modelo.
func (s *Service) OwnerOf(ctx context.Context, cattleID string) (string, error) {
	c, err := s.GetByID(ctx, cattleID)
	if err != nil {
		return "", err
	}
	return c.OwnerUserID, nil
}
