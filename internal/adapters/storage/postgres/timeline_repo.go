package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"cattle-breeding-timeline/internal/domain/timeline"
)

// TimelineRepo guarda cada timeline como cabecera + filas de eventos en
// orden de inserción. Save corre en una transacción con chequeo optimista
// sobre revision: o entra el documento entero o no entra nada.
type TimelineRepo struct {
	db *sql.DB
}

func NewTimelineRepo(db *sql.DB) *TimelineRepo {
	return &TimelineRepo{db: db}
}

func (r *TimelineRepo) Create(ctx context.Context, t timeline.Timeline) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO timelines (
			id, cattle_id, owner_user_id,
			revision, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		t.ID,
		t.CattleID,
		t.OwnerUserID,
		t.Revision,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		// cattle_id tiene constraint UNIQUE: un timeline por animal.
		if strings.Contains(err.Error(), "duplicate key") {
			return timeline.ErrAlreadyExists
		}
		return err
	}

	if err := insertEvents(ctx, tx, t.ID, t.Events); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TimelineRepo) GetBySubject(ctx context.Context, cattleID string) (timeline.Timeline, error) {
	cattleID = strings.TrimSpace(cattleID)
	if cattleID == "" {
		return timeline.Timeline{}, timeline.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, cattle_id, owner_user_id, revision, created_at, updated_at
		FROM timelines
		WHERE cattle_id = $1
	`, cattleID)

	var t timeline.Timeline
	if err := row.Scan(&t.ID, &t.CattleID, &t.OwnerUserID, &t.Revision, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return timeline.Timeline{}, timeline.ErrNotFound
		}
		return timeline.Timeline{}, err
	}

	events, err := r.loadEvents(ctx, t.ID)
	if err != nil {
		return timeline.Timeline{}, err
	}
	t.Events = events
	return t, nil
}

func (r *TimelineRepo) Save(ctx context.Context, t timeline.Timeline) (timeline.Timeline, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return timeline.Timeline{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE timelines
		SET revision = revision + 1, updated_at = $3
		WHERE cattle_id = $1 AND revision = $2
	`, t.CattleID, t.Revision, t.UpdatedAt)
	if err != nil {
		return timeline.Timeline{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// O no existe, o alguien guardó en el medio.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM timelines WHERE cattle_id = $1)`, t.CattleID,
		).Scan(&exists); err != nil {
			return timeline.Timeline{}, err
		}
		if !exists {
			return timeline.Timeline{}, timeline.ErrNotFound
		}
		return timeline.Timeline{}, timeline.ErrConflict
	}

	// El documento se reescribe entero; los eventos retirados desaparecen.
	if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_events WHERE timeline_id = $1`, t.ID); err != nil {
		return timeline.Timeline{}, err
	}
	if err := insertEvents(ctx, tx, t.ID, t.Events); err != nil {
		return timeline.Timeline{}, err
	}

	if err := tx.Commit(); err != nil {
		return timeline.Timeline{}, err
	}

	saved := t.Clone()
	saved.Revision++
	return saved, nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, timelineID string, events []timeline.Event) error {
	for pos, e := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO timeline_events (
				id, timeline_id, position,
				kind, title, description, status,
				scheduled_date, scheduled_end_date, completed_date,
				ai_status, cycle_number,
				heat_date, heat_visible, heat_signs, semen_bull_details,
				animal_type, ai_date, pd_check_date, is_pregnant,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		`,
			e.ID,
			timelineID,
			pos,
			string(e.Kind),
			e.Title,
			e.Description,
			string(e.Status),
			e.ScheduledDate,
			toNullDate(e.ScheduledEndDate),
			toNullDate(e.CompletedDate),
			string(e.AIStatus),
			nullInt(e.CycleNumber),
			toNullDate(e.HeatDate),
			e.HeatVisible,
			strings.Join(e.HeatSigns, ","),
			e.SemenBullDetails,
			string(e.AnimalType),
			toNullDate(e.AIDate),
			toNullDate(e.PDCheckDate),
			nullBool(e.IsPregnant),
			e.CreatedAt,
			e.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *TimelineRepo) loadEvents(ctx context.Context, timelineID string) ([]timeline.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, kind, title, description, status,
			scheduled_date, scheduled_end_date, completed_date,
			ai_status, cycle_number,
			heat_date, heat_visible, heat_signs, semen_bull_details,
			animal_type, ai_date, pd_check_date, is_pregnant,
			created_at, updated_at
		FROM timeline_events
		WHERE timeline_id = $1
		ORDER BY position ASC
	`, timelineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]timeline.Event, 0)
	for rows.Next() {
		var e timeline.Event
		var kind, status, aiStatus, animalType, heatSigns string
		var endDate, completedDate, heatDate, aiDate, pdDate sql.NullTime
		var cycle sql.NullInt64
		var pregnant sql.NullBool

		if err := rows.Scan(
			&e.ID,
			&kind,
			&e.Title,
			&e.Description,
			&status,
			&e.ScheduledDate,
			&endDate,
			&completedDate,
			&aiStatus,
			&cycle,
			&heatDate,
			&e.HeatVisible,
			&heatSigns,
			&e.SemenBullDetails,
			&animalType,
			&aiDate,
			&pdDate,
			&pregnant,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}

		e.Kind = timeline.EventKind(kind)
		e.Status = timeline.EventStatus(status)
		e.AIStatus = timeline.AIStatus(aiStatus)
		e.AnimalType = timeline.AnimalType(animalType)
		e.ScheduledEndDate = fromNullDate(endDate)
		e.CompletedDate = fromNullDate(completedDate)
		e.HeatDate = fromNullDate(heatDate)
		e.AIDate = fromNullDate(aiDate)
		e.PDCheckDate = fromNullDate(pdDate)
		if cycle.Valid {
			e.CycleNumber = int(cycle.Int64)
		}
		if pregnant.Valid {
			v := pregnant.Bool
			e.IsPregnant = &v
		}
		if heatSigns != "" {
			e.HeatSigns = strings.Split(heatSigns, ",")
		}

		out = append(out, e)
	}

	return out, rows.Err()
}

// Las fechas de calendario van como DATE; NullTime simplifica el mapeo.
func toNullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullDate(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{Valid: false}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
