package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository"
	"github.com/jwalitptl/karte-api/pkg/errors"
	"github.com/jwalitptl/karte-api/pkg/kana"
	"github.com/jwalitptl/karte-api/pkg/logger"
	"github.com/jwalitptl/karte-api/pkg/metrics"
)

const (
	// MinQueryLength is the shortest trimmed query, in runes, that is searched.
	MinQueryLength = 2

	patientLimit = 20
	noteLimit    = 50
	resultLimit  = 20
)

type SearchService interface {
	Search(ctx context.Context, query string) ([]model.GlobalSearchResult, error)
}

type Service struct {
	patients repository.PatientRepository
	notes    repository.NoteRepository
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewService(patients repository.PatientRepository, notes repository.NoteRepository, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		patients: patients,
		notes:    notes,
		metrics:  m,
		logger:   log.With("search"),
	}
}

// Search finds patients whose own fields or notes contain query and groups
// the field-level hits per patient, most hits first. Queries shorter than
// MinQueryLength return an empty result.
func (s *Service) Search(ctx context.Context, query string) ([]model.GlobalSearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []model.GlobalSearchResult{}, nil
	}

	start := time.Now()
	defer func() {
		s.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	}()

	variants := kana.Expand(query)

	var (
		patients []*model.Patient
		notes    []*model.NoteSearchRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.patients.Search(gctx, variants, query, patientLimit)
		if err != nil {
			return fmt.Errorf("failed to search patients: %w", err)
		}
		patients = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.notes.Search(gctx, query, noteLimit)
		if err != nil {
			return fmt.Errorf("failed to search notes: %w", err)
		}
		notes = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error(err, "global search failed", "query_length", utf8.RuneCountInString(query))
		return nil, errors.Internal(err)
	}

	m := newMerger()
	for _, p := range patients {
		m.add(p.ID, p.Name, p.Kana, patientHits(p, variants, query)...)
	}
	for _, row := range notes {
		if hit, ok := noteHit(row, query); ok {
			m.add(row.PatientID, row.PatientName, row.PatientKana, hit)
		}
	}

	results := m.results()
	s.metrics.SearchResults.Observe(float64(len(results)))
	return results, nil
}

// patientHits rescans a matched patient to find which fields matched. Name
// and kana stop at the first variant that matches.
func patientHits(p *model.Patient, variants []string, query string) []model.Hit {
	var hits []model.Hit
	for _, f := range []struct{ name, value string }{
		{model.SearchFieldName, p.Name},
		{model.SearchFieldKana, p.Kana},
	} {
		for _, v := range variants {
			if containsFold(f.value, v) {
				hits = append(hits, model.Hit{Field: f.name, Preview: Preview(f.value, v)})
				break
			}
		}
	}
	for _, f := range []struct{ name, value string }{
		{model.SearchFieldPhone, p.Phone},
		{model.SearchFieldMemo, p.Memo},
	} {
		if containsFold(f.value, query) {
			hits = append(hits, model.Hit{Field: f.name, Preview: Preview(f.value, query)})
		}
	}
	return hits
}

// noteHit reports the first free-text field of the note containing query.
// Later fields are not checked.
func noteHit(row *model.NoteSearchRow, query string) (model.Hit, bool) {
	for _, f := range []struct{ name, value string }{
		{model.SearchFieldContent, row.Content},
		{model.SearchFieldSymptoms, row.Symptoms},
		{model.SearchFieldTreatment, row.Treatment},
		{model.SearchFieldProgress, row.Progress},
	} {
		if containsFold(f.value, query) {
			date := row.Date
			return model.Hit{Field: f.name, Preview: Preview(f.value, query), Date: &date}, true
		}
	}
	return model.Hit{}, false
}

type hitKey struct {
	field   string
	preview string
}

// merger groups hits per patient in first-seen order and drops repeated
// (field, preview) pairs.
type merger struct {
	order []uuid.UUID
	byID  map[uuid.UUID]*model.GlobalSearchResult
	seen  map[uuid.UUID]map[hitKey]struct{}
}

func newMerger() *merger {
	return &merger{
		byID: make(map[uuid.UUID]*model.GlobalSearchResult),
		seen: make(map[uuid.UUID]map[hitKey]struct{}),
	}
}

func (m *merger) add(patientID uuid.UUID, name, kanaName string, hits ...model.Hit) {
	if len(hits) == 0 {
		return
	}
	res, ok := m.byID[patientID]
	if !ok {
		res = &model.GlobalSearchResult{
			PatientID:   patientID,
			PatientName: name,
			PatientKana: kanaName,
			Hits:        []model.Hit{},
		}
		m.byID[patientID] = res
		m.seen[patientID] = make(map[hitKey]struct{})
		m.order = append(m.order, patientID)
	}
	for _, h := range hits {
		key := hitKey{field: h.Field, preview: h.Preview}
		if _, dup := m.seen[patientID][key]; dup {
			continue
		}
		m.seen[patientID][key] = struct{}{}
		res.Hits = append(res.Hits, h)
	}
}

// results ranks patients by hit count, keeping first-seen order on ties,
// and truncates to resultLimit.
func (m *merger) results() []model.GlobalSearchResult {
	out := make([]model.GlobalSearchResult, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Hits) > len(out[j].Hits)
	})
	if len(out) > resultLimit {
		out = out[:resultLimit]
	}
	return out
}
