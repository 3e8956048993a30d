package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Room represents a schedulable teaching space.
type Room struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Type        string         `db:"type" json:"type"`
	Capacity    int            `db:"capacity" json:"capacity"`
	Unavailable types.JSONText `db:"unavailable_slots" json:"unavailable_slots,omitempty"`
	Active      bool           `db:"active" json:"active"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
