package entry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository"
	"github.com/jwalitptl/karte-api/internal/service/timeline"
	apperrors "github.com/jwalitptl/karte-api/pkg/errors"
	"github.com/jwalitptl/karte-api/pkg/logger"
	"github.com/jwalitptl/karte-api/pkg/metrics"
)

type EntryService interface {
	AddNote(ctx context.Context, in AddNoteInput) (*model.TimelineEntry, error)
	UpdateEntry(ctx context.Context, in UpdateEntryInput) (*model.TimelineEntry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID, kind model.EntryKind) error
}

// AttachmentStore removes attachment files and reports the ones it could not.
type AttachmentStore interface {
	DeleteAll(refs []string) ([]string, error)
}

type AddNoteInput struct {
	PatientID   uuid.UUID
	Content     string
	Kind        string
	Flags       []string
	StaffID     *uuid.UUID
	Date        time.Time
	Symptoms    string
	Treatment   string
	Progress    string
	Attachments []string
}

type UpdateEntryInput struct {
	ID      uuid.UUID
	Kind    model.EntryKind
	Content string
	// Flags replaces the note flags when non-nil. An empty slice clears them.
	Flags *[]string
	// Version enables the optimistic concurrency check when non-nil.
	Version *int
}

type Service struct {
	notes   repository.NoteRepository
	visits  repository.VisitRepository
	staff   repository.StaffRepository
	outbox  repository.OutboxRepository
	files   AttachmentStore
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(
	notes repository.NoteRepository,
	visits repository.VisitRepository,
	staff repository.StaffRepository,
	outbox repository.OutboxRepository,
	files AttachmentStore,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		notes:   notes,
		visits:  visits,
		staff:   staff,
		outbox:  outbox,
		files:   files,
		metrics: m,
		logger:  log.With("entry"),
	}
}

func (s *Service) AddNote(ctx context.Context, in AddNoteInput) (*model.TimelineEntry, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperrors.BadRequest("content is required", nil)
	}
	kind, ok := model.ParseNoteKind(in.Kind)
	if !ok {
		return nil, apperrors.BadRequest("kind must be one of memo, record, image", nil)
	}

	staffID, err := s.resolveStaff(ctx, in.StaffID)
	if err != nil {
		s.observe("add", model.EntryKind(kind), err)
		return nil, err
	}

	flags := in.Flags
	if flags == nil {
		flags = []string{}
	}
	note := &model.Note{
		PatientID:   in.PatientID,
		StaffID:     staffID,
		Date:        in.Date,
		Content:     in.Content,
		Symptoms:    in.Symptoms,
		Treatment:   in.Treatment,
		Progress:    in.Progress,
		Kind:        kind,
		Flags:       flags,
		Attachments: in.Attachments,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		err = s.storeError(err, "patient", "failed to create note")
		s.observe("add", model.EntryKind(kind), err)
		return nil, err
	}

	s.recordEvent(ctx, model.EventEntryCreated, model.EntryEvent{
		EntryID:   note.ID,
		PatientID: note.PatientID,
		Kind:      model.EntryKind(kind),
		StaffID:   staffID,
		At:        time.Now(),
	})
	s.observe("add", model.EntryKind(kind), nil)

	entry := timeline.NormalizeNote(ctx, note)
	return &entry, nil
}

// resolveStaff returns the supplied staff id, or the first known staff
// member, creating a placeholder when there is none.
func (s *Service) resolveStaff(ctx context.Context, staffID *uuid.UUID) (*uuid.UUID, error) {
	if staffID != nil && *staffID != uuid.Nil {
		return staffID, nil
	}
	staff, err := s.staff.FirstOrCreate(ctx, &model.Staff{Name: model.PlaceholderStaffName})
	if err != nil {
		return nil, s.storeError(err, "staff", "failed to resolve staff")
	}
	return &staff.ID, nil
}

func (s *Service) UpdateEntry(ctx context.Context, in UpdateEntryInput) (*model.TimelineEntry, error) {
	var (
		entry *model.TimelineEntry
		err   error
	)
	switch {
	case in.Kind == model.EntryKindAppointment:
		entry, err = s.updateVisitMemo(ctx, in)
	case in.Kind.IsNote():
		entry, err = s.updateNote(ctx, in)
	default:
		return nil, apperrors.BadRequest("unknown entry kind", nil)
	}
	s.observe("update", in.Kind, err)
	return entry, err
}

func (s *Service) updateVisitMemo(ctx context.Context, in UpdateEntryInput) (*model.TimelineEntry, error) {
	visit, err := s.visits.Get(ctx, in.ID)
	if err != nil {
		return nil, s.storeError(err, "appointment", "failed to get visit")
	}
	if err := s.visits.UpdateMemo(ctx, in.ID, in.Content); err != nil {
		return nil, s.storeError(err, "appointment", "failed to update visit memo")
	}
	visit.Memo = in.Content

	s.recordEvent(ctx, model.EventEntryUpdated, model.EntryEvent{
		EntryID:   visit.ID,
		PatientID: visit.PatientID,
		Kind:      model.EntryKindAppointment,
		At:        time.Now(),
	})

	entry := timeline.NormalizeVisit(ctx, visit)
	return &entry, nil
}

func (s *Service) updateNote(ctx context.Context, in UpdateEntryInput) (*model.TimelineEntry, error) {
	note, err := s.getNote(ctx, in.ID, in.Kind)
	if err != nil {
		return nil, err
	}

	note.Content = in.Content
	if in.Flags != nil {
		note.Flags = append([]string{}, (*in.Flags)...)
	}
	if err := s.notes.Update(ctx, note, in.Version); err != nil {
		return nil, s.storeError(err, "note", "failed to update note")
	}

	s.recordEvent(ctx, model.EventEntryUpdated, model.EntryEvent{
		EntryID:   note.ID,
		PatientID: note.PatientID,
		Kind:      model.EntryKind(note.Kind),
		StaffID:   note.StaffID,
		At:        time.Now(),
	})

	entry := timeline.NormalizeNote(ctx, note)
	return &entry, nil
}

// DeleteEntry hard-deletes a note. Attachment files go first; files that
// cannot be removed are logged and queued for cleanup, and the row is
// deleted regardless. Appointments are cancelled, never deleted.
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID, kind model.EntryKind) error {
	if kind == model.EntryKindAppointment {
		return apperrors.BadRequest("appointments cannot be deleted; cancel them instead", nil)
	}
	if !kind.IsNote() {
		return apperrors.BadRequest("unknown entry kind", nil)
	}

	err := s.deleteNote(ctx, id, kind)
	s.observe("delete", kind, err)
	return err
}

// getNote loads a note addressed as kind. A note stored under another kind
// is reported as not found.
func (s *Service) getNote(ctx context.Context, id uuid.UUID, kind model.EntryKind) (*model.Note, error) {
	note, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, s.storeError(err, "note", "failed to get note")
	}
	if model.EntryKind(note.Kind) != kind {
		return nil, apperrors.NotFound(string(kind), nil)
	}
	return note, nil
}

func (s *Service) deleteNote(ctx context.Context, id uuid.UUID, kind model.EntryKind) error {
	note, err := s.getNote(ctx, id, kind)
	if err != nil {
		return err
	}

	if len(note.Attachments) > 0 {
		failed, err := s.files.DeleteAll(note.Attachments)
		if err != nil {
			s.logger.Warn(err, "failed to delete attachments",
				"note_id", id.String(),
				"failed", len(failed),
			)
			s.metrics.AttachmentDeleteFailures.Add(float64(len(failed)))
			s.recordEvent(ctx, model.EventAttachmentCleanup, model.AttachmentCleanup{
				NoteID: id,
				Paths:  failed,
			})
		}
	}

	if err := s.notes.Delete(ctx, id); err != nil {
		return s.storeError(err, "note", "failed to delete note")
	}

	s.recordEvent(ctx, model.EventEntryDeleted, model.EntryEvent{
		EntryID:   note.ID,
		PatientID: note.PatientID,
		Kind:      model.EntryKind(note.Kind),
		StaffID:   note.StaffID,
		At:        time.Now(),
	})
	return nil
}

// storeError maps repository errors onto application errors. Unexpected
// failures are logged here and reported as internal.
func (s *Service) storeError(err error, resource, msg string) error {
	var ref *repository.ReferenceError
	if errors.As(err, &ref) {
		return apperrors.NotFound(ref.Resource, err)
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(resource, err)
	case errors.Is(err, repository.ErrVersionMismatch):
		return apperrors.Conflict(resource+" was modified by another request", err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error(err, msg)
	return apperrors.Internal(err)
}

// recordEvent writes an outbox event. Failures are logged only; the
// mutation has already been committed.
func (s *Service) recordEvent(ctx context.Context, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(err, "failed to marshal outbox payload", "event_type", eventType)
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{EventType: eventType, Payload: data}); err != nil {
		s.logger.Warn(err, "failed to record outbox event", "event_type", eventType)
	}
}

func (s *Service) observe(op string, kind model.EntryKind, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.EntryMutations.WithLabelValues(op, string(kind), status).Inc()
}
