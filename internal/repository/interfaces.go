package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/karte-api/internal/model"
)

var (
	// ErrNotFound is returned when a row addressed by id does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionMismatch is returned by versioned updates that lost a race.
	ErrVersionMismatch = errors.New("version mismatch")
)

// ReferenceError is returned by writes that name a row which does not exist,
// such as a note for an unknown patient. It matches ErrNotFound.
type ReferenceError struct {
	Resource string
}

func (e *ReferenceError) Error() string {
	return e.Resource + " does not exist"
}

func (e *ReferenceError) Unwrap() error {
	return ErrNotFound
}

// All repository interfaces in one file
type (
	PatientRepository interface {
		// Search matches name/kana against every variant and phone/memo
		// against the raw query. Soft-deleted patients are excluded.
		Search(ctx context.Context, variants []string, raw string, limit int) ([]*model.Patient, error)
	}

	VisitRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.VisitEvent, error)
		// ListByPatient returns every visit for the patient; a non-empty
		// query restricts to visits whose memo or staff memo contains it.
		ListByPatient(ctx context.Context, patientID uuid.UUID, query string) ([]*model.VisitEvent, error)
		UpdateMemo(ctx context.Context, id uuid.UUID, memo string) error
	}

	NoteRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Note, error)
		// ListByPatient returns every note for the patient; a non-empty
		// query restricts to notes where any free-text field contains it.
		ListByPatient(ctx context.Context, patientID uuid.UUID, query string) ([]*model.Note, error)
		Search(ctx context.Context, query string, limit int) ([]*model.NoteSearchRow, error)
		Create(ctx context.Context, note *model.Note) error
		// Update rewrites content and metadata. When expectedVersion is not
		// nil the write only applies if the stored version matches.
		Update(ctx context.Context, note *model.Note, expectedVersion *int) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	StaffRepository interface {
		// FirstOrCreate returns the oldest staff row. When the table is
		// empty it inserts placeholder and returns it.
		FirstOrCreate(ctx context.Context, placeholder *model.Staff) (*model.Staff, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		// Reschedule puts a claimed event back to pending, not claimable
		// before retryAt, and counts the attempt.
		Reschedule(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
	}
)
