package postgres

import (
	"context"
	"database/sql"
	"strings"

	"cattle-breeding-timeline/internal/domain/cattle"
)

type CattleRepo struct {
	db *sql.DB
}

func NewCattleRepo(db *sql.DB) *CattleRepo {
	return &CattleRepo{db: db}
}

func (r *CattleRepo) Create(ctx context.Context, c cattle.Cattle) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cattle (
			id, owner_user_id,
			type, breed, tag_number, nick_name,
			date_of_last_delivery,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		c.ID,
		c.OwnerUserID,
		string(c.Type),
		c.Breed,
		c.TagNumber,
		c.NickName,
		c.DateOfLastDelivery,
		c.CreatedAt,
	)
	return err
}

func (r *CattleRepo) GetByID(ctx context.Context, id string) (cattle.Cattle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return cattle.Cattle{}, cattle.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, owner_user_id,
			type, breed, tag_number, nick_name,
			date_of_last_delivery,
			created_at
		FROM cattle
		WHERE id = $1
	`, id)

	var c cattle.Cattle
	var typ string
	if err := row.Scan(
		&c.ID,
		&c.OwnerUserID,
		&typ,
		&c.Breed,
		&c.TagNumber,
		&c.NickName,
		&c.DateOfLastDelivery,
		&c.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return cattle.Cattle{}, cattle.ErrNotFound
		}
		return cattle.Cattle{}, err
	}

	c.Type = cattle.Species(typ)
	return c, nil
}

func (r *CattleRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]cattle.Cattle, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, owner_user_id,
			type, breed, tag_number, nick_name,
			date_of_last_delivery,
			created_at
		FROM cattle
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]cattle.Cattle, 0)
	for rows.Next() {
		var c cattle.Cattle
		var typ string
		if err := rows.Scan(
			&c.ID,
			&c.OwnerUserID,
			&typ,
			&c.Breed,
			&c.TagNumber,
			&c.NickName,
			&c.DateOfLastDelivery,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		c.Type = cattle.Species(typ)
		out = append(out, c)
	}

	return out, rows.Err()
}
