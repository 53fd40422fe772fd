package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository"
)

// staffPlaceholderLock serializes placeholder creation across API instances.
const staffPlaceholderLock = 7270001

type staffRepository struct {
	BaseRepository
}

func NewStaffRepository(db *sqlx.DB) repository.StaffRepository {
	return &staffRepository{NewBaseRepository(db)}
}

func (r *staffRepository) FirstOrCreate(ctx context.Context, placeholder *model.Staff) (*model.Staff, error) {
	var staff model.Staff
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, staffPlaceholderLock); err != nil {
			return fmt.Errorf("failed to lock staff table: %w", err)
		}

		err := tx.GetContext(ctx, &staff, `
			SELECT id, name, created_at, updated_at
			FROM staff
			ORDER BY created_at ASC, id ASC
			LIMIT 1
		`)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to get first staff: %w", err)
		}

		staff = *placeholder
		if staff.ID == uuid.Nil {
			staff.ID = uuid.New()
		}
		staff.CreatedAt = time.Now()
		staff.UpdatedAt = staff.CreatedAt
		_, err = tx.ExecContext(ctx,
			`INSERT INTO staff (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
			staff.ID, staff.Name, staff.CreatedAt, staff.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create placeholder staff: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &staff, nil
}
