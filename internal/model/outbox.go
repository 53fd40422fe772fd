package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusProcessed  OutboxStatus = "PROCESSED"
	OutboxStatusFailed     OutboxStatus = "FAILED"
)

// Outbox event types.
const (
	EventEntryCreated      = "entry.created"
	EventEntryUpdated      = "entry.updated"
	EventEntryDeleted      = "entry.deleted"
	EventAttachmentCleanup = "attachment.cleanup"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
}

// EntryEvent is the payload of entry.* outbox events.
type EntryEvent struct {
	EntryID   uuid.UUID  `json:"entry_id"`
	PatientID uuid.UUID  `json:"patient_id"`
	Kind      EntryKind  `json:"kind"`
	StaffID   *uuid.UUID `json:"staff_id,omitempty"`
	At        time.Time  `json:"at"`
}

// AttachmentCleanup is the payload of attachment.cleanup events: files that
// could not be removed when their note was deleted.
type AttachmentCleanup struct {
	NoteID uuid.UUID `json:"note_id"`
	Paths  []string  `json:"paths"`
}
