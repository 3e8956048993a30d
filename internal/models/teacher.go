package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Teacher represents an instructor record as the scheduler consumes it.
type Teacher struct {
	ID             string         `db:"id" json:"id"`
	NIP            *string        `db:"nip" json:"nip,omitempty"`
	FullName       string         `db:"full_name" json:"full_name"`
	Email          string         `db:"email" json:"email"`
	Expertise      *string        `db:"expertise" json:"expertise,omitempty"`
	MaxWeeklyHours int            `db:"max_weekly_hours" json:"max_weekly_hours"`
	Unavailable    types.JSONText `db:"unavailable_slots" json:"unavailable_slots,omitempty"`
	Preferred      types.JSONText `db:"preferred_slots" json:"preferred_slots,omitempty"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
