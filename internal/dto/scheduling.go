package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/engine"
)

// AlgorithmOptions tunes the optional local-optimization phase of a run.
type AlgorithmOptions struct {
	MaxIterations           int  `json:"maxIterations" validate:"omitempty,min=1,max=10000"`
	TimeLimitSeconds        int  `json:"timeLimitSeconds" validate:"omitempty,min=1,max=3600"`
	EnableLocalOptimization bool `json:"enableLocalOptimization"`
}

// ExecuteSchedulingRequest starts a scheduling run for a set of classes in
// one term. An empty ClassIDs list schedules every active class. RulesID
// selects a stored rule set; empty falls back to the default-flagged one.
type ExecuteSchedulingRequest struct {
	AcademicYear     string            `json:"academicYear" validate:"required"`
	Semester         int               `json:"semester" validate:"required,min=1,max=2"`
	ClassIDs         []string          `json:"classIds" validate:"omitempty,dive,required"`
	RulesID          string            `json:"rulesId"`
	PreserveExisting bool              `json:"preserveExisting"`
	Algorithm        *AlgorithmOptions `json:"algorithm" validate:"omitempty"`
}

// SchedulingRunResponse reports a run's lifecycle state. Result is populated
// only once the run finishes.
type SchedulingRunResponse struct {
	RunID        string                    `json:"runId"`
	Status       string                    `json:"status"`
	AcademicYear string                    `json:"academicYear"`
	Semester     int                       `json:"semester"`
	ClassIDs     []string                  `json:"classIds"`
	Progress     *engine.Progress          `json:"progress,omitempty"`
	Result       *SchedulingResultResponse `json:"result,omitempty"`
	Error        string                    `json:"error,omitempty"`
	StartedAt    time.Time                 `json:"startedAt"`
	FinishedAt   *time.Time                `json:"finishedAt,omitempty"`
}

// SchedulingResultResponse is the externally visible slice of an engine
// result.
type SchedulingResultResponse struct {
	Status      string                      `json:"status"`
	Statistics  engine.Statistics           `json:"statistics"`
	Conflicts   []engine.ConflictRecord     `json:"conflicts"`
	Suggestions []string                    `json:"suggestions"`
	Unassigned  []engine.UnassignedVariable `json:"unassigned"`
	Diagnostics []engine.Diagnostic         `json:"diagnostics"`
	EntryCount  int                         `json:"entryCount"`
}

// RulesResponse is the list/detail view of a stored rule set.
type RulesResponse struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IsDefault   bool         `json:"isDefault"`
	Rules       engine.Rules `json:"rules"`
}
