package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/karte-api/internal/config"
	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository"
	"github.com/jwalitptl/karte-api/pkg/logger"
	"github.com/jwalitptl/karte-api/pkg/messaging"
	"github.com/jwalitptl/karte-api/pkg/metrics"
	"github.com/jwalitptl/karte-api/pkg/storage"
)

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent failure")

// AttachmentDeleter removes attachment files, returning the ones it could not.
type AttachmentDeleter interface {
	DeleteAll(refs []string) ([]string, error)
}

// OutboxProcessor drains the outbox: entry.* events are published to the
// broker and attachment.cleanup events retry file removal.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Publisher
	files   AttachmentDeleter
	channel string
	config  config.OutboxConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Publisher,
	files AttachmentDeleter,
	channel string,
	cfg config.OutboxConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) (*OutboxProcessor, error) {
	if cfg.BatchSize <= 0 {
		return nil, errors.New("batch size must be greater than 0")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be greater than 0")
	}
	if cfg.RetryAttempts <= 0 {
		return nil, errors.New("retry attempts must be greater than 0")
	}
	if channel == "" {
		return nil, errors.New("channel is required")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		files:   files,
		channel: channel,
		config:  cfg,
		logger:  log.With("outbox"),
		metrics: m,
		now:     time.Now,
	}, nil
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "batch_size", p.config.BatchSize)

	for {
		if _, err := p.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error(err, "Failed to process events")
		}

		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch claims one batch and handles every event in it. It returns
// the number of events that completed.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPendingEventsWithLock(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	done := 0
	for _, event := range events {
		if err := p.handle(ctx, event); err != nil {
			p.fail(ctx, event, err)
			continue
		}
		p.metrics.OutboxEventsProcessed.Inc()
		if !event.CreatedAt.IsZero() {
			p.metrics.OutboxEventLatency.WithLabelValues(event.EventType).Observe(p.now().Sub(event.CreatedAt).Seconds())
		}
		if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil); err != nil {
			p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
			continue
		}
		done++
	}

	return done, nil
}

func (p *OutboxProcessor) handle(ctx context.Context, event *model.OutboxEvent) error {
	switch {
	case event.EventType == model.EventAttachmentCleanup:
		var cleanup model.AttachmentCleanup
		if err := json.Unmarshal(event.Payload, &cleanup); err != nil {
			return fmt.Errorf("%w: bad cleanup payload: %v", errPermanent, err)
		}
		failed, err := p.files.DeleteAll(cleanup.Paths)
		if errors.Is(err, storage.ErrInvalidRef) {
			return fmt.Errorf("%w: %v", errPermanent, err)
		}
		if err != nil {
			return fmt.Errorf("%d attachment(s) still present: %w", len(failed), err)
		}
		p.logger.Info("Attachment cleanup completed", "note_id", cleanup.NoteID.String(), "files", len(cleanup.Paths))
		return nil

	case strings.HasPrefix(event.EventType, "entry."):
		return p.broker.Publish(ctx, p.channel, messaging.Message{
			ID:      event.ID.String(),
			Type:    event.EventType,
			Payload: event.Payload,
		})

	default:
		return fmt.Errorf("%w: unknown event type %q", errPermanent, event.EventType)
	}
}

// fail reschedules event with exponential backoff, or marks it FAILED once
// its attempts are used up.
func (p *OutboxProcessor) fail(ctx context.Context, event *model.OutboxEvent, cause error) {
	msg := cause.Error()
	attempt := event.RetryCount + 1

	if attempt < p.config.RetryAttempts && !errors.Is(cause, errPermanent) {
		retryAt := p.now().Add(p.config.RetryDelay << event.RetryCount)
		p.logger.Warn(cause, "Outbox event will be retried",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"attempt", attempt,
			"retry_at", retryAt)
		if err := p.repo.Reschedule(ctx, event.ID, msg, retryAt); err != nil {
			p.logger.Error(err, "Failed to reschedule event", "event_id", event.ID.String())
		}
		return
	}

	p.metrics.OutboxEventsFailed.Inc()
	p.logger.Error(cause, "Outbox event failed",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"attempt", attempt)
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &msg); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
	}
}
