// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository"
)

var (
	_ repository.PatientRepository = (*PatientRepository)(nil)
	_ repository.VisitRepository   = (*VisitRepository)(nil)
	_ repository.NoteRepository    = (*NoteRepository)(nil)
	_ repository.StaffRepository   = (*StaffRepository)(nil)
	_ repository.OutboxRepository  = (*OutboxRepository)(nil)
)

type PatientRepository struct {
	mock.Mock
}

func (m *PatientRepository) Search(ctx context.Context, variants []string, raw string, limit int) ([]*model.Patient, error) {
	args := m.Called(ctx, variants, raw, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Patient), args.Error(1)
}

type VisitRepository struct {
	mock.Mock
}

func (m *VisitRepository) Get(ctx context.Context, id uuid.UUID) (*model.VisitEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VisitEvent), args.Error(1)
}

func (m *VisitRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, query string) ([]*model.VisitEvent, error) {
	args := m.Called(ctx, patientID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.VisitEvent), args.Error(1)
}

func (m *VisitRepository) UpdateMemo(ctx context.Context, id uuid.UUID, memo string) error {
	return m.Called(ctx, id, memo).Error(0)
}

type NoteRepository struct {
	mock.Mock
}

func (m *NoteRepository) Get(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Note), args.Error(1)
}

func (m *NoteRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, query string) ([]*model.Note, error) {
	args := m.Called(ctx, patientID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Note), args.Error(1)
}

func (m *NoteRepository) Search(ctx context.Context, query string, limit int) ([]*model.NoteSearchRow, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.NoteSearchRow), args.Error(1)
}

func (m *NoteRepository) Create(ctx context.Context, note *model.Note) error {
	return m.Called(ctx, note).Error(0)
}

func (m *NoteRepository) Update(ctx context.Context, note *model.Note, expectedVersion *int) error {
	return m.Called(ctx, note, expectedVersion).Error(0)
}

func (m *NoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type StaffRepository struct {
	mock.Mock
}

func (m *StaffRepository) FirstOrCreate(ctx context.Context, placeholder *model.Staff) (*model.Staff, error) {
	args := m.Called(ctx, placeholder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Staff), args.Error(1)
}

type OutboxRepository struct {
	mock.Mock
}

func (m *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *OutboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxEvent), args.Error(1)
}

func (m *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *OutboxRepository) Reschedule(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	return m.Called(ctx, id, errMsg, retryAt).Error(0)
}
