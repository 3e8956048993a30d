package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SchedulingRules is a named, versionable rule set. Payload holds the full
// rule document as JSONB and is parsed into the engine's rule structs once
// per run.
type SchedulingRules struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description *string        `db:"description" json:"description,omitempty"`
	Payload     types.JSONText `db:"payload" json:"payload"`
	IsDefault   bool           `db:"is_default" json:"is_default"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
