package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/karte-api/internal/config"
	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository/mocks"
	"github.com/jwalitptl/karte-api/pkg/logger"
	"github.com/jwalitptl/karte-api/pkg/messaging"
	"github.com/jwalitptl/karte-api/pkg/metrics"
	"github.com/jwalitptl/karte-api/pkg/storage"
)

type published struct {
	channel string
	message interface{}
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{channel: channel, message: message})
	return nil
}

type fakeDeleter struct {
	calls [][]string
	err   error
}

func (f *fakeDeleter) DeleteAll(refs []string) ([]string, error) {
	f.calls = append(f.calls, refs)
	if f.err != nil {
		return refs, f.err
	}
	return nil, nil
}

var testOutboxConfig = config.OutboxConfig{
	BatchSize:     10,
	PollInterval:  time.Second,
	RetryAttempts: 3,
	RetryDelay:    time.Second,
}

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestProcessor(t *testing.T, repo *mocks.OutboxRepository, pub messaging.Publisher, files AttachmentDeleter) *OutboxProcessor {
	t.Helper()
	p, err := NewOutboxProcessor(repo, pub, files, "karte.entries", testOutboxConfig, logger.Nop(), metrics.NewNop())
	require.NoError(t, err)
	p.now = func() time.Time { return fixedNow }
	return p
}

func entryEvent(t *testing.T, eventType string) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(model.EntryEvent{EntryID: uuid.New(), PatientID: uuid.New(), Kind: model.EntryKindMemo})
	require.NoError(t, err)
	return &model.OutboxEvent{ID: uuid.New(), EventType: eventType, Payload: payload, Status: string(model.OutboxStatusProcessing)}
}

func cleanupEvent(t *testing.T, paths ...string) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(model.AttachmentCleanup{NoteID: uuid.New(), Paths: paths})
	require.NoError(t, err)
	return &model.OutboxEvent{ID: uuid.New(), EventType: model.EventAttachmentCleanup, Payload: payload}
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	cfg := testOutboxConfig
	cfg.BatchSize = 0
	_, err := NewOutboxProcessor(&mocks.OutboxRepository{}, &fakePublisher{}, &fakeDeleter{}, "c", cfg, logger.Nop(), metrics.NewNop())
	assert.Error(t, err)

	_, err = NewOutboxProcessor(&mocks.OutboxRepository{}, &fakePublisher{}, &fakeDeleter{}, "", testOutboxConfig, logger.Nop(), metrics.NewNop())
	assert.Error(t, err)
}

func TestProcessBatchPublishesEntryEvents(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OutboxRepository{}
	pub := &fakePublisher{}
	created := entryEvent(t, model.EventEntryCreated)
	deleted := entryEvent(t, model.EventEntryDeleted)

	repo.On("GetPendingEventsWithLock", ctx, 10).Return([]*model.OutboxEvent{created, deleted}, nil)
	repo.On("UpdateStatus", ctx, created.ID, model.OutboxStatusProcessed, (*string)(nil)).Return(nil)
	repo.On("UpdateStatus", ctx, deleted.ID, model.OutboxStatusProcessed, (*string)(nil)).Return(nil)

	p := newTestProcessor(t, repo, pub, &fakeDeleter{})
	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, pub.sent, 2)
	assert.Equal(t, "karte.entries", pub.sent[0].channel)
	msg, ok := pub.sent[0].message.(messaging.Message)
	require.True(t, ok)
	assert.Equal(t, created.ID.String(), msg.ID)
	assert.Equal(t, model.EventEntryCreated, msg.Type)
	assert.JSONEq(t, string(created.Payload), string(msg.Payload))
	repo.AssertExpectations(t)
}

func TestProcessBatchReschedulesWithBackoff(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OutboxRepository{}
	pub := &fakePublisher{err: errors.New("redis down")}
	event := entryEvent(t, model.EventEntryUpdated)
	event.RetryCount = 1

	repo.On("GetPendingEventsWithLock", ctx, 10).Return([]*model.OutboxEvent{event}, nil)
	repo.On("Reschedule", ctx, event.ID, "redis down", fixedNow.Add(2*time.Second)).Return(nil)

	p := newTestProcessor(t, repo, pub, &fakeDeleter{})
	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatchFailsAfterLastAttempt(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OutboxRepository{}
	pub := &fakePublisher{err: errors.New("redis down")}
	event := entryEvent(t, model.EventEntryUpdated)
	event.RetryCount = 2

	repo.On("GetPendingEventsWithLock", ctx, 10).Return([]*model.OutboxEvent{event}, nil)
	repo.On("UpdateStatus", ctx, event.ID, model.OutboxStatusFailed, mock.MatchedBy(func(msg *string) bool {
		return msg != nil && *msg == "redis down"
	})).Return(nil)

	p := newTestProcessor(t, repo, pub, &fakeDeleter{})
	_, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Reschedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatchUnknownTypeFailsWithoutRetry(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OutboxRepository{}
	event := &model.OutboxEvent{ID: uuid.New(), EventType: "patient.merged", Payload: json.RawMessage(`{}`)}

	repo.On("GetPendingEventsWithLock", ctx, 10).Return([]*model.OutboxEvent{event}, nil)
	repo.On("UpdateStatus", ctx, event.ID, model.OutboxStatusFailed, mock.AnythingOfType("*string")).Return(nil)

	p := newTestProcessor(t, repo, &fakePublisher{}, &fakeDeleter{})
	_, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessBatchRetriesAttachmentCleanup(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/attachments/p1/a.png", []byte("png"), 0o644))
	files := storage.NewFileStoreWithFs(fs, "/attachments")

	repo := &mocks.OutboxRepository{}
	event := cleanupEvent(t, "p1/a.png", "p1/already-gone.png")
	repo.On("GetPendingEventsWithLock", ctx, 10).Return([]*model.OutboxEvent{event}, nil)
	repo.On("UpdateStatus", ctx, event.ID, model.OutboxStatusProcessed, (*string)(nil)).Return(nil)

	pub := &fakePublisher{}
	p := newTestProcessor(t, repo, pub, files)
	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, pub.sent)

	exists, err := afero.Exists(fs, "/attachments/p1/a.png")
	require.NoError(t, err)
	assert.False(t, exists)
	repo.AssertExpectations(t)
}

func TestProcessBatchCleanupFailureIsRescheduled(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OutboxRepository{}
	files := &fakeDeleter{err: errors.New("permission denied")}
	event := cleanupEvent(t, "p1/a.png")

	repo.On("GetPendingEventsWithLock", ctx, 10).Return([]*model.OutboxEvent{event}, nil)
	repo.On("Reschedule", ctx, event.ID, mock.AnythingOfType("string"), fixedNow.Add(time.Second)).Return(nil)

	p := newTestProcessor(t, repo, &fakePublisher{}, files)
	_, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"p1/a.png"}}, files.calls)
	repo.AssertExpectations(t)
}

func TestProcessBatchInvalidCleanupRefFailsWithoutRetry(t *testing.T) {
	ctx := context.Background()
	files := storage.NewFileStoreWithFs(afero.NewMemMapFs(), "/attachments")
	repo := &mocks.OutboxRepository{}
	event := cleanupEvent(t, "")

	repo.On("GetPendingEventsWithLock", ctx, 10).Return([]*model.OutboxEvent{event}, nil)
	repo.On("UpdateStatus", ctx, event.ID, model.OutboxStatusFailed, mock.AnythingOfType("*string")).Return(nil)

	p := newTestProcessor(t, repo, &fakePublisher{}, files)
	_, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Reschedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatchClaimError(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OutboxRepository{}
	repo.On("GetPendingEventsWithLock", ctx, 10).Return(nil, errors.New("connection refused"))

	p := newTestProcessor(t, repo, &fakePublisher{}, &fakeDeleter{})
	_, err := p.ProcessBatch(ctx)
	assert.ErrorContains(t, err, "connection refused")
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := &mocks.OutboxRepository{}
	repo.On("GetPendingEventsWithLock", mock.Anything, 10).Return([]*model.OutboxEvent{}, nil)

	p := newTestProcessor(t, repo, &fakePublisher{}, &fakeDeleter{})
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop")
	}
}
