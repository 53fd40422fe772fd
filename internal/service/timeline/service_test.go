package timeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/internal/repository/mocks"
	apperrors "github.com/jwalitptl/karte-api/pkg/errors"
	"github.com/jwalitptl/karte-api/pkg/logger"
	"github.com/jwalitptl/karte-api/pkg/metrics"
)

func newTestService(visits []*model.VisitEvent, notes []*model.Note) (*Service, *mocks.VisitRepository, *mocks.NoteRepository) {
	vr := &mocks.VisitRepository{}
	nr := &mocks.NoteRepository{}
	vr.On("ListByPatient", mock.Anything, mock.Anything, mock.Anything).Return(visits, nil)
	nr.On("ListByPatient", mock.Anything, mock.Anything, mock.Anything).Return(notes, nil)
	return NewService(vr, nr, metrics.NewNop(), logger.Nop()), vr, nr
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 9, 0, 0, 0, time.UTC)
}

func visitAt(d int) *model.VisitEvent {
	return &model.VisitEvent{Base: model.Base{ID: uuid.New()}, StartTime: day(d), Status: model.VisitStatusCompleted}
}

func noteAt(d int, content, meta string) *model.Note {
	n := &model.Note{Base: model.Base{ID: uuid.New()}, Date: day(d), Content: content, MetadataJSON: meta, Version: 1}
	n.DecodeStorage()
	return n
}

func mixedFixture() ([]*model.VisitEvent, []*model.Note) {
	visits := []*model.VisitEvent{visitAt(20), visitAt(11), visitAt(3), visitAt(3)}
	notes := []*model.Note{
		noteAt(25, "a", ""),
		noteAt(11, "b", `{"type":"memo"}`),
		noteAt(7, "c", `{"type":"image"}`),
		noteAt(3, "d", ""),
		noteAt(1, "e", `{"type":"memo"}`),
	}
	return visits, notes
}

func TestFetchPaginationProperties(t *testing.T) {
	visits, notes := mixedFixture()
	svc, _, _ := newTestService(visits, notes)
	total := len(visits) + len(notes)

	for offset := 0; offset <= total+2; offset++ {
		for limit := 0; limit <= total+2; limit++ {
			t.Run(fmt.Sprintf("offset=%d/limit=%d", offset, limit), func(t *testing.T) {
				page, err := svc.Fetch(context.Background(), uuid.New(), offset, limit, "")
				require.NoError(t, err)
				assert.Equal(t, total, page.Total)
				assert.Len(t, page.Entries, min(limit, max(0, total-offset)))
				assert.Equal(t, total > offset+limit, page.HasMore)
			})
		}
	}
}

func TestFetchOrdersByDateDescending(t *testing.T) {
	visits, notes := mixedFixture()
	svc, _, _ := newTestService(visits, notes)

	page, err := svc.Fetch(context.Background(), uuid.New(), 0, 100, "")
	require.NoError(t, err)

	for i := 1; i < len(page.Entries); i++ {
		assert.False(t, page.Entries[i].Date.After(page.Entries[i-1].Date), "entry %d is newer than entry %d", i, i-1)
	}
}

func TestFetchTiesKeepFetchOrder(t *testing.T) {
	visits, notes := mixedFixture()
	svc, _, _ := newTestService(visits, notes)

	page, err := svc.Fetch(context.Background(), uuid.New(), 0, 100, "")
	require.NoError(t, err)

	var sameDay []uuid.UUID
	for _, e := range page.Entries {
		if e.Date.Equal(day(3)) {
			sameDay = append(sameDay, e.ID)
		}
	}
	assert.Equal(t, []uuid.UUID{visits[2].ID, visits[3].ID, notes[3].ID}, sameDay)
}

func TestFetchIsIdempotent(t *testing.T) {
	visits, notes := mixedFixture()
	svc, _, _ := newTestService(visits, notes)
	patientID := uuid.New()

	first, err := svc.Fetch(context.Background(), patientID, 2, 4, "")
	require.NoError(t, err)
	second, err := svc.Fetch(context.Background(), patientID, 2, 4, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFetchLargeWindowIsNotClamped(t *testing.T) {
	notes := make([]*model.Note, 0, 150)
	for i := 0; i < 150; i++ {
		notes = append(notes, noteAt(1, "n", ""))
	}
	svc, _, _ := newTestService(nil, notes)

	for _, tt := range []struct {
		offset, limit int
		wantLen       int
		wantMore      bool
	}{
		{offset: 0, limit: 0, wantLen: 0, wantMore: true},
		{offset: 150, limit: 0, wantLen: 0, wantMore: false},
		{offset: 0, limit: 150, wantLen: 150, wantMore: false},
		{offset: 0, limit: 500, wantLen: 150, wantMore: false},
		{offset: 20, limit: 101, wantLen: 101, wantMore: true},
	} {
		t.Run(fmt.Sprintf("offset=%d/limit=%d", tt.offset, tt.limit), func(t *testing.T) {
			page, err := svc.Fetch(context.Background(), uuid.New(), tt.offset, tt.limit, "")
			require.NoError(t, err)
			assert.Len(t, page.Entries, tt.wantLen)
			assert.Equal(t, tt.wantMore, page.HasMore)
			assert.Equal(t, 150, page.Total)
		})
	}
}

func TestFetchNegativeWindowActsAsZero(t *testing.T) {
	visits, notes := mixedFixture()
	svc, _, _ := newTestService(visits, notes)

	page, err := svc.Fetch(context.Background(), uuid.New(), -5, 3, "")
	require.NoError(t, err)
	assert.Len(t, page.Entries, 3)

	page, err = svc.Fetch(context.Background(), uuid.New(), 0, -1, "")
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.True(t, page.HasMore)
}

func TestFetchPassesTrimmedQueryToBothSources(t *testing.T) {
	patientID := uuid.New()
	vr := &mocks.VisitRepository{}
	nr := &mocks.NoteRepository{}
	vr.On("ListByPatient", mock.Anything, patientID, "腰痛").Return([]*model.VisitEvent{}, nil).Once()
	nr.On("ListByPatient", mock.Anything, patientID, "腰痛").Return([]*model.Note{}, nil).Once()
	svc := NewService(vr, nr, metrics.NewNop(), logger.Nop())

	_, err := svc.Fetch(context.Background(), patientID, 0, 10, "  腰痛 ")
	require.NoError(t, err)
	vr.AssertExpectations(t)
	nr.AssertExpectations(t)
}

func TestFetchStoreErrorIsNotPartialSuccess(t *testing.T) {
	vr := &mocks.VisitRepository{}
	nr := &mocks.NoteRepository{}
	vr.On("ListByPatient", mock.Anything, mock.Anything, mock.Anything).Return([]*model.VisitEvent{visitAt(1)}, nil)
	nr.On("ListByPatient", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	svc := NewService(vr, nr, metrics.NewNop(), logger.Nop())

	page, err := svc.Fetch(context.Background(), uuid.New(), 0, 10, "")
	assert.Nil(t, page)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
}

func TestFetchKindsFromMetadata(t *testing.T) {
	memo := noteAt(10, "電話あり", `{"type":"memo"}`)
	record := noteAt(9, "施術記録", "")
	svc, _, _ := newTestService(nil, []*model.Note{memo, record})

	page, err := svc.Fetch(context.Background(), uuid.New(), 0, 20, "")
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, model.EntryKindMemo, page.Entries[0].Kind)
	assert.Equal(t, model.EntryKindRecord, page.Entries[1].Kind)
}

func TestFetchQueryMatchingNothing(t *testing.T) {
	svc, _, _ := newTestService([]*model.VisitEvent{}, []*model.Note{})

	page, err := svc.Fetch(context.Background(), uuid.New(), 0, 20, "存在しない")
	require.NoError(t, err)
	assert.Equal(t, &model.TimelinePage{Entries: []model.TimelineEntry{}, HasMore: false, Total: 0}, page)
}
