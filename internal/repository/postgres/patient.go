package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Search(ctx context.Context, variants []string, raw string, limit int) ([]*model.Patient, error) {
	matches := make([]Cond, 0, 2*len(variants)+2)
	for _, v := range variants {
		matches = append(matches, Contains("name", v), Contains("kana", v))
	}
	matches = append(matches, Contains("phone", raw), Contains("memo", raw))

	where, args := Compile(And(IsNull("deleted_at"), Or(matches...)))
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT id, name, kana, phone, memo, deleted_at, created_at, updated_at
		FROM patients
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT $%d
	`, where, len(args))

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return patients, nil
}
