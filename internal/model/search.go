package model

import (
	"time"

	"github.com/google/uuid"
)

// Fields a search hit can point at.
const (
	SearchFieldName      = "name"
	SearchFieldKana      = "kana"
	SearchFieldPhone     = "phone"
	SearchFieldMemo      = "memo"
	SearchFieldContent   = "content"
	SearchFieldSymptoms  = "symptoms"
	SearchFieldTreatment = "treatment"
	SearchFieldProgress  = "progress"
)

// Hit is one field-level match with a readable preview.
type Hit struct {
	Field   string     `json:"field"`
	Preview string     `json:"preview"`
	Date    *time.Time `json:"date,omitempty"`
}

// GlobalSearchResult groups every hit for one patient.
type GlobalSearchResult struct {
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	PatientKana string    `json:"patient_kana"`
	Hits        []Hit     `json:"hits"`
}

// NoteSearchRow is a note matched by global search, joined with its patient.
type NoteSearchRow struct {
	Note
	PatientName string `db:"patient_name"`
	PatientKana string `db:"patient_kana"`
}
