package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository"
)

const noteColumns = `n.id, n.patient_id, n.staff_id, n.date, n.content, n.symptoms,
	n.treatment, n.progress, n.metadata, n.attachments, n.version, n.created_at, n.updated_at`

// noteTextColumns are the free-text fields searched and filtered on.
var noteTextColumns = []string{"n.content", "n.symptoms", "n.treatment", "n.progress"}

type noteRepository struct {
	BaseRepository
}

func NewNoteRepository(db *sqlx.DB) repository.NoteRepository {
	return &noteRepository{NewBaseRepository(db)}
}

func (r *noteRepository) Get(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes n WHERE n.id = $1`
	var note model.Note
	if err := r.GetDB().GetContext(ctx, &note, query, id); err != nil {
		return nil, notFound(err, "note")
	}
	note.DecodeStorage()
	return &note, nil
}

func (r *noteRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, query string) ([]*model.Note, error) {
	cond := Eq("n.patient_id", patientID)
	if query != "" {
		cond = And(cond, ContainsAny(query, noteTextColumns...))
	}
	where, args := Compile(cond)

	stmt := `SELECT ` + noteColumns + ` FROM notes n WHERE ` + where + ` ORDER BY n.date DESC`
	var notes []*model.Note
	if err := r.GetDB().SelectContext(ctx, &notes, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	for _, note := range notes {
		note.DecodeStorage()
	}
	return notes, nil
}

func (r *noteRepository) Search(ctx context.Context, query string, limit int) ([]*model.NoteSearchRow, error) {
	where, args := Compile(And(IsNull("p.deleted_at"), ContainsAny(query, noteTextColumns...)))
	args = append(args, limit)
	stmt := fmt.Sprintf(`
		SELECT %s, p.name AS patient_name, p.kana AS patient_kana
		FROM notes n
		JOIN patients p ON p.id = n.patient_id
		WHERE %s
		ORDER BY n.date DESC
		LIMIT $%d
	`, noteColumns, where, len(args))

	var rows []*model.NoteSearchRow
	if err := r.GetDB().SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}

	for _, row := range rows {
		row.DecodeStorage()
	}
	return rows, nil
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) error {
	if err := note.EncodeStorage(); err != nil {
		return fmt.Errorf("failed to encode note metadata: %w", err)
	}

	now := time.Now()
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	if note.Date.IsZero() {
		note.Date = now
	}
	note.Version = 1
	note.CreatedAt = now
	note.UpdatedAt = now

	query := `
		INSERT INTO notes (
			id, patient_id, staff_id, date, content, symptoms, treatment,
			progress, metadata, attachments, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		note.ID,
		note.PatientID,
		note.StaffID,
		note.Date,
		note.Content,
		note.Symptoms,
		note.Treatment,
		note.Progress,
		note.MetadataJSON,
		note.AttachmentsJSON,
		note.Version,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		if err = missingReference(err, "patient", "staff"); errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

func (r *noteRepository) Update(ctx context.Context, note *model.Note, expectedVersion *int) error {
	if err := note.EncodeStorage(); err != nil {
		return fmt.Errorf("failed to encode note metadata: %w", err)
	}
	note.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE notes
			SET content = $1, metadata = $2, version = version + 1, updated_at = $3
			WHERE id = $4
		`
		args := []interface{}{note.Content, note.MetadataJSON, note.UpdatedAt, note.ID}
		if expectedVersion != nil {
			query += ` AND version = $5`
			args = append(args, *expectedVersion)
		}
		query += ` RETURNING version`

		var version int
		err := tx.GetContext(ctx, &version, query, args...)
		if err == nil {
			note.Version = version
			return nil
		}

		if expectedVersion != nil {
			var exists bool
			if existsErr := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM notes WHERE id = $1)`, note.ID); existsErr == nil && exists {
				return fmt.Errorf("note %s: %w", note.ID, repository.ErrVersionMismatch)
			}
		}
		return notFound(err, "note")
	})
}

func (r *noteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return requireAffected(result, "note")
}
