package engine

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultMaxIterations = 200
	progressReportEvery  = 20
)

// optimize runs bounded local-improvement passes over the committed
// assignments: single units (standalone variables or whole blocks) are moved
// to an alternative placement only when that strictly reduces the total soft
// penalty without introducing a hard violation. Fixed-tier variables are
// never moved. Each sweep also retries unassigned variables, since moves can
// free the combination they were missing.
//
// The loop is bounded by maxIterations and, when set, the wall-clock time
// limit; cancellation is observed between iterations.
func (s *solver) optimize(ctx context.Context) (int, error) {
	maxIterations := s.cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	var deadline time.Time
	if s.cfg.TimeLimit > 0 {
		deadline = time.Now().Add(s.cfg.TimeLimit)
	}

	total, _ := s.totalSoftPenalty()
	iterations := 0

	for iterations < maxIterations {
		if err := ctx.Err(); err != nil {
			return iterations, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		improved := false
		for _, tier := range []Tier{TierCore, TierGeneral} {
			s.retryUnassigned(tier)
			if s.improveTier(tier, &total) {
				improved = true
			}
		}
		iterations++

		if iterations%progressReportEvery == 0 {
			s.report("optimize", 100, fmt.Sprintf("optimization iteration %d, penalty %d", iterations, total))
		}
		if !improved {
			break
		}
	}
	return iterations, nil
}

// improveTier attempts one improving move per placed unit of the tier.
func (s *solver) improveTier(tier Tier, total *int) bool {
	improved := false

	units := s.placedUnits(tier)
	for _, u := range units {
		current := make([]Assignment, 0, len(u.vars))
		for _, v := range u.vars {
			a, ok := s.state.Assignment(v.ID)
			if !ok {
				current = nil
				break
			}
			current = append(current, a)
		}
		if current == nil {
			continue
		}

		for i := len(u.vars) - 1; i >= 0; i-- {
			s.state.Remove(u.vars[i])
		}
		candidates := s.enumerate(u)
		if len(candidates) == 0 {
			s.restore(u, current)
			continue
		}
		s.commit(u, candidates[0])

		newTotal, _ := s.totalSoftPenalty()
		if newTotal < *total {
			*total = newTotal
			improved = true
			continue
		}

		for i := len(u.vars) - 1; i >= 0; i-- {
			s.state.Remove(u.vars[i])
		}
		s.restore(u, current)
	}
	return improved
}

func (s *solver) restore(u *unit, assignments []Assignment) {
	for i, v := range u.vars {
		s.state.Place(v, assignments[i].Slot, assignments[i].RoomID)
	}
}

// placedUnits groups the tier's currently assigned variables into movable
// units, declaration order preserved.
func (s *solver) placedUnits(tier Tier) []*unit {
	var units []*unit
	blocks := make(map[string]*unit)
	for _, v := range s.vars {
		if v.Tier != tier || v.Fixed {
			continue
		}
		if _, placed := s.state.Assignment(v.ID); !placed {
			continue
		}
		if v.BlockGroupID == "" {
			units = append(units, &unit{vars: []*Variable{v}, order: v.ID})
			continue
		}
		b, ok := blocks[v.BlockGroupID]
		if !ok {
			b = &unit{blockID: v.BlockGroupID, order: v.ID}
			blocks[v.BlockGroupID] = b
			units = append(units, b)
		}
		b.vars = append(b.vars, v)
	}
	return units
}

// totalSoftPenalty re-scores every committed assignment against the current
// state. Each variable is lifted out before scoring so its own occupancy does
// not count against itself.
func (s *solver) totalSoftPenalty() (int, int) {
	total := 0
	violations := 0
	for _, a := range s.state.Assignments() {
		v, ok := s.state.Variable(a.VariableID)
		if !ok {
			continue
		}
		s.state.Remove(v)
		for _, item := range s.eval.softBreakdown(v, a.Slot, a.RoomID) {
			if item.value > 0 {
				violations++
				total += item.value
			}
		}
		s.state.Place(v, a.Slot, a.RoomID)
	}
	return total, violations
}
