package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository"
)

const visitColumns = `id, patient_id, staff_id, start_time, duration_minutes, status,
	memo, staff_memo, created_at, updated_at`

type visitRepository struct {
	db *sqlx.DB
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.VisitEvent, error) {
	query := `SELECT ` + visitColumns + ` FROM visit_events WHERE id = $1`
	var visit model.VisitEvent
	if err := r.db.GetContext(ctx, &visit, query, id); err != nil {
		return nil, notFound(err, "visit event")
	}
	return &visit, nil
}

func (r *visitRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, query string) ([]*model.VisitEvent, error) {
	cond := Eq("patient_id", patientID)
	if query != "" {
		cond = And(cond, ContainsAny(query, "memo", "staff_memo"))
	}
	where, args := Compile(cond)

	stmt := `SELECT ` + visitColumns + ` FROM visit_events WHERE ` + where + ` ORDER BY start_time DESC`
	var visits []*model.VisitEvent
	if err := r.db.SelectContext(ctx, &visits, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to list visit events: %w", err)
	}
	return visits, nil
}

func (r *visitRepository) UpdateMemo(ctx context.Context, id uuid.UUID, memo string) error {
	query := `UPDATE visit_events SET memo = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, memo, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update visit memo: %w", err)
	}
	return requireAffected(result, "visit event")
}
