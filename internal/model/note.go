package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NoteKind is the subtype of a note. It is persisted inside the legacy
// metadata JSON blob and decoded only by the storage adapter.
type NoteKind string

const (
	NoteKindMemo   NoteKind = "memo"
	NoteKindRecord NoteKind = "record"
	NoteKindImage  NoteKind = "image"
)

// ParseNoteKind accepts memo, record and image. The empty string maps to
// record.
func ParseNoteKind(s string) (NoteKind, bool) {
	switch NoteKind(strings.TrimSpace(s)) {
	case NoteKindMemo:
		return NoteKindMemo, true
	case NoteKindImage:
		return NoteKindImage, true
	case NoteKindRecord, "":
		return NoteKindRecord, true
	}
	return "", false
}

// Note is a free-form clinical or administrative entry.
type Note struct {
	Base
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	StaffID   *uuid.UUID `db:"staff_id" json:"staff_id,omitempty"`
	Date      time.Time  `db:"date" json:"date"`
	Content   string     `db:"content" json:"content"`
	Symptoms  string     `db:"symptoms" json:"symptoms,omitempty"`
	Treatment string     `db:"treatment" json:"treatment,omitempty"`
	Progress  string     `db:"progress" json:"progress,omitempty"`
	Version   int        `db:"version" json:"version"`

	MetadataJSON    string          `db:"metadata" json:"-"`
	AttachmentsJSON json.RawMessage `db:"attachments" json:"-"`

	Kind        NoteKind `db:"-" json:"kind"`
	Flags       []string `db:"-" json:"flags"`
	Attachments []string `db:"-" json:"attachments,omitempty"`

	// metadata keys other than type/flags, preserved on rewrite
	extra map[string]json.RawMessage
}

// NoteMetadata is the decoded form of Note.metadata.
type NoteMetadata struct {
	Kind  NoteKind
	Flags []string
	Extra map[string]json.RawMessage
}

// ParseNoteMetadata decodes the metadata blob. Malformed JSON, a missing or
// unknown type, or a non-array flags value never fail: they fall back to
// record and an empty flag list.
func ParseNoteMetadata(raw string) NoteMetadata {
	meta := NoteMetadata{Kind: NoteKindRecord, Flags: []string{}}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return meta
	}

	if t, ok := fields["type"]; ok {
		var s string
		if json.Unmarshal(t, &s) == nil {
			switch NoteKind(s) {
			case NoteKindMemo, NoteKindImage:
				meta.Kind = NoteKind(s)
			}
		}
	}

	if f, ok := fields["flags"]; ok {
		var items []interface{}
		if json.Unmarshal(f, &items) == nil {
			for _, item := range items {
				if s, ok := item.(string); ok {
					meta.Flags = append(meta.Flags, s)
				}
			}
		}
	}

	delete(fields, "type")
	delete(fields, "flags")
	if len(fields) > 0 {
		meta.Extra = fields
	}
	return meta
}

// Encode renders the metadata blob, keeping unknown keys intact.
func (m NoteMetadata) Encode() (string, error) {
	out := make(map[string]interface{}, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	kind := m.Kind
	if kind == "" {
		kind = NoteKindRecord
	}
	flags := m.Flags
	if flags == nil {
		flags = []string{}
	}
	out["type"] = kind
	out["flags"] = flags

	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeStorage populates the typed fields from the persisted columns.
func (n *Note) DecodeStorage() {
	meta := ParseNoteMetadata(n.MetadataJSON)
	n.Kind = meta.Kind
	n.Flags = meta.Flags
	n.extra = meta.Extra

	n.Attachments = []string{}
	if len(n.AttachmentsJSON) > 0 {
		var paths []string
		if json.Unmarshal(n.AttachmentsJSON, &paths) == nil {
			n.Attachments = paths
		}
	}
}

// EncodeStorage renders the typed fields back into the persisted columns.
func (n *Note) EncodeStorage() error {
	meta, err := NoteMetadata{Kind: n.Kind, Flags: n.Flags, Extra: n.extra}.Encode()
	if err != nil {
		return err
	}
	n.MetadataJSON = meta

	attachments := n.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return err
	}
	n.AttachmentsJSON = data
	return nil
}
