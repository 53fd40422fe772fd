package model

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind discriminates timeline entries. Note kinds share their values
// with NoteKind.
type EntryKind string

const (
	EntryKindAppointment EntryKind = "appointment"
	EntryKindRecord      EntryKind = EntryKind(NoteKindRecord)
	EntryKindMemo        EntryKind = EntryKind(NoteKindMemo)
	EntryKindImage       EntryKind = EntryKind(NoteKindImage)
)

// ParseEntryKind validates a kind coming from a request path.
func ParseEntryKind(s string) (EntryKind, bool) {
	switch k := EntryKind(s); k {
	case EntryKindAppointment, EntryKindRecord, EntryKindMemo, EntryKindImage:
		return k, true
	}
	return "", false
}

// IsNote reports whether the kind is backed by a Note row.
func (k EntryKind) IsNote() bool {
	return k == EntryKindRecord || k == EntryKindMemo || k == EntryKindImage
}

// TimelineEntry is the merge-ready projection of a VisitEvent or a Note. It
// is computed per request and never persisted.
type TimelineEntry struct {
	ID               uuid.UUID `json:"id"`
	Date             time.Time `json:"date"`
	Kind             EntryKind `json:"kind"`
	Content          string    `json:"content"`
	SecondaryContent string    `json:"secondary_content,omitempty"`
	Status           string    `json:"status,omitempty"`
	Flags            []string  `json:"flags"`
	Images           []string  `json:"images,omitempty"`
	Version          int       `json:"version,omitempty"`
}

type TimelinePage struct {
	Entries []TimelineEntry `json:"entries"`
	HasMore bool            `json:"has_more"`
	Total   int             `json:"total"`
}
