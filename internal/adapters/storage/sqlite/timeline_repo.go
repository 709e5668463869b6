package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cattle-breeding-timeline/internal/domain/timeline"
)

type TimelineRepo struct {
	db *sql.DB
}

func NewTimelineRepo(db *sql.DB) *TimelineRepo {
	return &TimelineRepo{db: db}
}

func (r *TimelineRepo) Create(ctx context.Context, t timeline.Timeline) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO timelines (cattle_id, revision, payload) VALUES (?, ?, ?)
		 ON CONFLICT (cattle_id) DO NOTHING`,
		t.CattleID, t.Revision, payload,
	)
	if err != nil {
		return fmt.Errorf("insert timeline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return timeline.ErrAlreadyExists
	}
	return nil
}

func (r *TimelineRepo) GetBySubject(ctx context.Context, cattleID string) (timeline.Timeline, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM timelines WHERE cattle_id = ?`, cattleID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return timeline.Timeline{}, timeline.ErrNotFound
	}
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("select timeline: %w", err)
	}
	var t timeline.Timeline
	if err := json.Unmarshal(payload, &t); err != nil {
		return timeline.Timeline{}, fmt.Errorf("unmarshal timeline: %w", err)
	}
	return t, nil
}

// Save reemplaza el documento completo, condicionado a la revisión leída.
// Cero filas afectadas significa conflicto de escritura o timeline borrado.
func (r *TimelineRepo) Save(ctx context.Context, t timeline.Timeline) (timeline.Timeline, error) {
	next := t
	next.Revision = t.Revision + 1

	payload, err := json.Marshal(next)
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("marshal timeline: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE timelines SET revision = ?, payload = ? WHERE cattle_id = ? AND revision = ?`,
		next.Revision, payload, t.CattleID, t.Revision,
	)
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("update timeline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM timelines WHERE cattle_id = ?`, t.CattleID).Scan(&exists); err != nil {
			return timeline.Timeline{}, fmt.Errorf("check timeline: %w", err)
		}
		if exists == 0 {
			return timeline.Timeline{}, timeline.ErrNotFound
		}
		return timeline.Timeline{}, timeline.ErrConflict
	}
	return next, nil
}
