package model

import (
	"time"
)

// Patient is a roster entry. Soft-deleted patients keep their rows but are
// excluded from search.
type Patient struct {
	Base
	Name      string     `db:"name" json:"name"`
	Kana      string     `db:"kana" json:"kana"`
	Phone     string     `db:"phone" json:"phone"`
	Memo      string     `db:"memo" json:"memo"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
