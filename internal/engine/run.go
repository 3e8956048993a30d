// Package engine implements the timetable scheduling engine: it expands
// teaching plans into placement variables, pre-places fixed-time activities,
// solves the remaining variables tier by tier under hard and soft
// constraints, optionally runs bounded local optimization, and reports
// conflicts, statistics and finalized schedule entries.
//
// The engine performs no I/O. Every run owns its working state exclusively;
// concurrent runs only share the read-only rule set and snapshot.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Request carries everything one scheduling run needs. The snapshot and rule
// set must not be mutated for the duration of the run.
type Request struct {
	Demands   []CourseDemand
	Preserved []PreservedAssignment
	Rules     Rules
	Snapshot  *Snapshot
	Config    AlgorithmConfig

	// Progress, when set, receives stage updates. Sends never block: a slow
	// consumer loses intermediate updates, not correctness.
	Progress chan<- Progress
	Logger   *zap.Logger
}

// Run executes one scheduling run. Only configuration errors (invalid rules,
// invalid continuous-hours setup, strict fixed-time collisions) return a
// non-nil error; infeasibility and policy-driven collisions degrade into the
// result's statistics and conflict records. Cancellation yields the best
// state reached so far with status ABORTED and a nil error.
func Run(ctx context.Context, req Request) (*Result, error) {
	logger := req.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if req.Snapshot == nil {
		req.Snapshot = NewSnapshot(nil, nil, nil, nil)
	}

	if err := req.Rules.Validate(); err != nil {
		return nil, err
	}

	vars, diags, err := generate(req.Demands, req.Preserved, &req.Rules, req.Snapshot)
	if err != nil {
		return nil, err
	}

	state := NewState()
	s := newSolver(&req.Rules, req.Snapshot, state, vars, req.Config, req.Progress, logger)

	warningConflicts, err := preplace(state, vars, &req.Rules)
	if err != nil {
		return nil, fmt.Errorf("fixed-slot pre-placement: %w", err)
	}
	s.report("fixed", tierPercent(state.Len(), len(vars)), fmt.Sprintf("fixed tier complete: %d pre-placed", state.Len()))

	aborted := false
	for _, tier := range []Tier{TierCore, TierGeneral} {
		if err := s.solveTier(ctx, tier); err != nil {
			logger.Info("scheduling run cancelled", zap.String("tier", tier.String()))
			aborted = true
			break
		}
	}

	iterations := 0
	if !aborted && req.Config.EnableLocalOptimization {
		iterations, err = s.optimize(ctx)
		if err != nil {
			logger.Info("scheduling run cancelled during optimization", zap.Int("iterations", iterations))
			aborted = true
		}
	}

	if aborted {
		for _, v := range vars {
			if _, placed := state.Assignment(v.ID); placed {
				continue
			}
			if _, seen := s.unassigned[v.ID]; !seen {
				s.unassigned[v.ID] = "run aborted before placement"
			}
		}
	}

	conflicts, stats, suggestions := s.detect()
	conflicts = mergeWarnings(conflicts, warningConflicts)
	hard := 0
	for _, c := range conflicts {
		if !c.Warning {
			hard++
		}
	}
	stats.HardViolations = hard

	result := &Result{
		Status:      StatusCompleted,
		Entries:     s.materialize(),
		Statistics:  stats,
		Conflicts:   conflicts,
		Suggestions: suggestions,
		Unassigned:  s.unassignedList(),
		Diagnostics: diags,
	}
	if aborted {
		result.Status = StatusAborted
	}

	logger.Info("scheduling run finished",
		zap.String("status", string(result.Status)),
		zap.Int("total", stats.TotalVariables),
		zap.Int("assigned", stats.AssignedVariables),
		zap.Int("unassigned", stats.UnassignedVariables),
		zap.Int("score", stats.TotalScore),
		zap.Int("optimizeIterations", iterations))

	s.report("finalize", 100, fmt.Sprintf("run %s: %d of %d variables placed", result.Status, stats.AssignedVariables, stats.TotalVariables))
	return result, nil
}

// mergeWarnings folds pre-placement warning records into the detector's
// re-scan. A collision the fixed-time warning strategy allowed through stays
// a warning even when the resource policy would classify it as a hard
// violation; unmatched warning records are appended as-is.
func mergeWarnings(detected []ConflictRecord, warnings []ConflictRecord) []ConflictRecord {
	for _, w := range warnings {
		matched := false
		for i := range detected {
			if detected[i].Kind == w.Kind && detected[i].ResourceID == w.ResourceID && detected[i].Slot == w.Slot {
				detected[i].Warning = true
				matched = true
				break
			}
		}
		if !matched {
			detected = append(detected, w)
		}
	}
	return detected
}

func tierPercent(placed, total int) int {
	if total == 0 {
		return 100
	}
	return placed * 100 / total
}
