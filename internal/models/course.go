package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Course represents a teachable subject offering with its scheduling needs.
type Course struct {
	ID                   string         `db:"id" json:"id"`
	Name                 string         `db:"name" json:"name"`
	Subject              string         `db:"subject" json:"subject"`
	WeeklyHours          int            `db:"weekly_hours" json:"weekly_hours"`
	RequiresContinuous   bool           `db:"requires_continuous" json:"requires_continuous"`
	ContinuousHours      int            `db:"continuous_hours" json:"continuous_hours"`
	RoomTypes            types.JSONText `db:"room_types" json:"room_types,omitempty"`
	AvoidFirstLastPeriod bool           `db:"avoid_first_last_period" json:"avoid_first_last_period"`
	Active               bool           `db:"active" json:"active"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}
