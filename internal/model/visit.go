package model

import (
	"time"

	"github.com/google/uuid"
)

type VisitStatus string

const (
	VisitStatusScheduled VisitStatus = "scheduled"
	VisitStatusArrived   VisitStatus = "arrived"
	VisitStatusCompleted VisitStatus = "completed"
	VisitStatusCancelled VisitStatus = "cancelled"
)

// VisitEvent is a scheduled appointment. Rows are never deleted; a
// cancellation is a status write owned by the scheduling side.
type VisitEvent struct {
	Base
	PatientID       uuid.UUID   `db:"patient_id" json:"patient_id"`
	StaffID         *uuid.UUID  `db:"staff_id" json:"staff_id,omitempty"`
	StartTime       time.Time   `db:"start_time" json:"start_time"`
	DurationMinutes int         `db:"duration_minutes" json:"duration_minutes"`
	Status          VisitStatus `db:"status" json:"status"`
	Memo            string      `db:"memo" json:"memo"`
	StaffMemo       string      `db:"staff_memo" json:"staff_memo"`
}
