package timeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository"
	"github.com/jwalitptl/karte-api/pkg/errors"
	"github.com/jwalitptl/karte-api/pkg/logger"
	"github.com/jwalitptl/karte-api/pkg/metrics"
)

type TimelineService interface {
	Fetch(ctx context.Context, patientID uuid.UUID, offset, limit int, query string) (*model.TimelinePage, error)
}

type Service struct {
	visits  repository.VisitRepository
	notes   repository.NoteRepository
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(visits repository.VisitRepository, notes repository.NoteRepository, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		visits:  visits,
		notes:   notes,
		metrics: m,
		logger:  log.With("timeline"),
	}
}

// Fetch merges every matching visit and note of the patient into one feed
// ordered by date descending, then returns the [offset, offset+limit) page.
// Entries with equal dates keep fetch order, visits before notes. The window
// is applied as given: limit 0 yields no entries.
func (s *Service) Fetch(ctx context.Context, patientID uuid.UUID, offset, limit int, query string) (*model.TimelinePage, error) {
	start := time.Now()
	defer func() {
		s.metrics.TimelineFetchLatency.Observe(time.Since(start).Seconds())
	}()

	offset, limit = max(offset, 0), max(limit, 0)
	query = strings.TrimSpace(query)

	var (
		visits []*model.VisitEvent
		notes  []*model.Note
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.visits.ListByPatient(gctx, patientID, query)
		if err != nil {
			return fmt.Errorf("failed to list visits: %w", err)
		}
		visits = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.notes.ListByPatient(gctx, patientID, query)
		if err != nil {
			return fmt.Errorf("failed to list notes: %w", err)
		}
		notes = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error(err, "failed to fetch timeline", "patient_id", patientID.String())
		return nil, errors.Internal(err)
	}

	merged := make([]model.TimelineEntry, 0, len(visits)+len(notes))
	for _, v := range visits {
		merged = append(merged, NormalizeVisit(ctx, v))
	}
	for _, n := range notes {
		merged = append(merged, NormalizeNote(ctx, n))
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	s.metrics.TimelineEntries.Observe(float64(len(merged)))

	total := len(merged)
	from := min(offset, total)
	to := min(offset+limit, total)

	return &model.TimelinePage{
		Entries: append([]model.TimelineEntry{}, merged[from:to]...),
		HasMore: total > offset+limit,
		Total:   total,
	}, nil
}
