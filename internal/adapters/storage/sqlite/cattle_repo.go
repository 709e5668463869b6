package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cattle-breeding-timeline/internal/domain/cattle"
)

type CattleRepo struct {
	db *sql.DB
}

func NewCattleRepo(db *sql.DB) *CattleRepo {
	return &CattleRepo{db: db}
}

func (r *CattleRepo) Create(ctx context.Context, c cattle.Cattle) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM cattle WHERE owner_user_id = ? AND tag_number = ?`,
		c.OwnerUserID, c.TagNumber,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check tag: %w", err)
	}
	if exists > 0 {
		return cattle.ErrAlreadyExists
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cattle: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO cattle (id, owner_user_id, tag_number, created_at, payload) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.OwnerUserID, c.TagNumber, c.CreatedAt.Format(time.RFC3339Nano), payload,
	)
	if err != nil {
		return fmt.Errorf("insert cattle: %w", err)
	}
	return nil
}

func (r *CattleRepo) GetByID(ctx context.Context, id string) (cattle.Cattle, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM cattle WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return cattle.Cattle{}, cattle.ErrNotFound
	}
	if err != nil {
		return cattle.Cattle{}, fmt.Errorf("select cattle: %w", err)
	}
	var c cattle.Cattle
	if err := json.Unmarshal(payload, &c); err != nil {
		return cattle.Cattle{}, fmt.Errorf("unmarshal cattle: %w", err)
	}
	return c, nil
}

func (r *CattleRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]cattle.Cattle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM cattle WHERE owner_user_id = ? ORDER BY created_at, id`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("select cattle por owner: %w", err)
	}
	defer rows.Close()

	var out []cattle.Cattle
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan cattle: %w", err)
		}
		var c cattle.Cattle
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("unmarshal cattle: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
