package engine

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// unit is the solver's placement granule: a standalone variable or a full
// continuous block. Blocks are placed atomically so the continuity predicate
// is satisfiable by construction.
type unit struct {
	vars    []*Variable
	blockID string
	order   int
}

func (u *unit) isBlock() bool { return u.blockID != "" }

// candidate is a scored placement for a unit. Room and slot identify the
// first member's position; block members follow on consecutive periods.
type candidate struct {
	slot    TimeSlot
	roomID  string
	penalty int
	tieRank int
}

type solver struct {
	rules    *Rules
	snap     *Snapshot
	state    *State
	eval     *evaluator
	vars     []*Variable
	cfg      AlgorithmConfig
	progress chan<- Progress
	logger   *zap.Logger

	unassigned map[int]string
	// rejectionTally counts hard rejections per rule across the run, feeding
	// the suggestion generator.
	rejectionTally map[string]int
}

func newSolver(rules *Rules, snap *Snapshot, state *State, vars []*Variable, cfg AlgorithmConfig, progress chan<- Progress, logger *zap.Logger) *solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &solver{
		rules:          rules,
		snap:           snap,
		state:          state,
		eval:           &evaluator{rules: rules, snap: snap, state: state, vars: vars},
		vars:           vars,
		cfg:            cfg,
		progress:       progress,
		logger:         logger,
		unassigned:     make(map[int]string),
		rejectionTally: make(map[string]int),
	}
}

// solveTier places every variable of the tier. Units are re-ranked after each
// commitment: fewest feasible candidates first, blocks before standalone
// variables, declaration order as the final tie-break. A unit with zero
// surviving candidates is recorded unassigned and the tier continues.
func (s *solver) solveTier(ctx context.Context, tier Tier) error {
	pending := s.buildUnits(tier)

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		type ranked struct {
			u          *unit
			candidates []candidate
		}
		best := ranked{}
		bestIdx := -1
		for i, u := range pending {
			cands := s.enumerate(u)
			if bestIdx == -1 || lessConstrained(u, cands, best.u, best.candidates) {
				best = ranked{u: u, candidates: cands}
				bestIdx = i
			}
		}

		u := best.u
		pending = append(pending[:bestIdx], pending[bestIdx+1:]...)

		if len(best.candidates) == 0 {
			reason := s.dominantRejection(u)
			for _, v := range u.vars {
				s.unassigned[v.ID] = reason
			}
			s.logger.Debug("variable unassigned",
				zap.Int("variable", u.vars[0].ID),
				zap.String("class", u.vars[0].ClassID),
				zap.String("course", u.vars[0].CourseID),
				zap.String("reason", reason))
			continue
		}
		s.commit(u, best.candidates[0])
	}

	// One bounded retry pass: placements made later in the tier can free
	// combinations that were infeasible on the first attempt.
	s.retryUnassigned(tier)

	s.report(tier.String(), s.state.Len()*100/maxInt(len(s.vars), 1),
		fmt.Sprintf("%s tier complete: %d placed, %d unassigned", tier, s.state.Len(), len(s.unassigned)))
	return nil
}

func lessConstrained(a *unit, aCands []candidate, b *unit, bCands []candidate) bool {
	if len(aCands) != len(bCands) {
		return len(aCands) < len(bCands)
	}
	if a.isBlock() != b.isBlock() {
		return a.isBlock()
	}
	return a.order < b.order
}

func (s *solver) retryUnassigned(tier Tier) {
	retried := s.buildUnits(tier)
	for _, u := range retried {
		if _, miss := s.unassigned[u.vars[0].ID]; !miss {
			continue
		}
		cands := s.enumerate(u)
		if len(cands) == 0 {
			continue
		}
		for _, v := range u.vars {
			delete(s.unassigned, v.ID)
		}
		s.commit(u, cands[0])
	}
}

// buildUnits groups a tier's unplaced variables into placement units,
// preserving declaration order.
func (s *solver) buildUnits(tier Tier) []*unit {
	var units []*unit
	blocks := make(map[string]*unit)
	for _, v := range s.vars {
		if v.Tier != tier {
			continue
		}
		if _, placed := s.state.Assignment(v.ID); placed {
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

// enumerate lists the unit's surviving candidates sorted best-first:
// lowest summed soft penalty, then the priority-order tie rank, then
// earliest day and period, then lowest room id.
func (s *solver) enumerate(u *unit) []candidate {
	var out []candidate
	rooms := s.roomCandidates(u.vars[0])
	span := len(u.vars)

	for day := 1; day <= s.rules.Time.DaysPerWeek; day++ {
		for period := 1; period+span-1 <= s.rules.Time.PeriodsPerDay; period++ {
			slot := TimeSlot{Day: day, Period: period}
			for _, roomID := range rooms {
				penalty, ok := s.tryPlacement(u, slot, roomID)
				if !ok {
					continue
				}
				out = append(out, candidate{
					slot:    slot,
					roomID:  roomID,
					penalty: penalty,
					tieRank: s.tieRank(u.vars[0], slot, roomID),
				})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.penalty != b.penalty {
			return a.penalty < b.penalty
		}
		if a.tieRank != b.tieRank {
			return a.tieRank < b.tieRank
		}
		if a.slot != b.slot {
			return a.slot.Before(b.slot)
		}
		return a.roomID < b.roomID
	})
	return out
}

// tryPlacement checks the unit at the slot without leaving any trace in the
// working state. Block members are placed transiently so each member's
// predicates see its siblings, then rolled back.
func (s *solver) tryPlacement(u *unit, slot TimeSlot, roomID string) (int, bool) {
	penalty := 0
	placed := 0
	ok := true
	for i, v := range u.vars {
		memberSlot := TimeSlot{Day: slot.Day, Period: slot.Period + i}
		if rej := s.eval.checkHard(v, memberSlot, roomID); rej != nil {
			s.rejectionTally[rej.Rule]++
			ok = false
			break
		}
		penalty += s.eval.softPenalty(v, memberSlot, roomID)
		s.state.Place(v, memberSlot, roomID)
		placed++
	}
	for i := placed - 1; i >= 0; i-- {
		s.state.Remove(u.vars[i])
	}
	if !ok {
		return 0, false
	}
	return penalty, true
}

func (s *solver) commit(u *unit, c candidate) {
	for i, v := range u.vars {
		s.state.Place(v, TimeSlot{Day: c.slot.Day, Period: c.slot.Period + i}, c.roomID)
	}
}

// roomCandidates narrows the room set by the course's required types. When
// the snapshot carries no rooms at all, placement proceeds room-less (the
// class's own homeroom is implied).
func (s *solver) roomCandidates(v *Variable) []string {
	all := s.snap.RoomIDs()
	if len(all) == 0 {
		return []string{""}
	}
	course, ok := s.snap.Course(v.CourseID)
	if !ok || len(course.RoomTypes) == 0 {
		return all
	}
	var out []string
	for _, id := range all {
		room, _ := s.snap.Room(id)
		for _, t := range course.RoomTypes {
			if room.Type == t {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// tieRank resolves equal-penalty candidates using the conflict-resolution
// priority order: the earliest listed resource whose preference the candidate
// satisfies wins. "teacher" matches the teacher's preferred slots, "class"
// the teaching plan's preferred slots, "room" the course's first required
// room type.
func (s *solver) tieRank(v *Variable, slot TimeSlot, roomID string) int {
	order := s.rules.Conflicts.PriorityOrder
	for i, resource := range order {
		switch resource {
		case "teacher":
			if teacher, ok := s.snap.Teacher(v.TeacherID); ok && containsSlot(teacher.Preferred, slot) {
				return i
			}
		case "class":
			if containsSlot(v.Preferred, slot) {
				return i
			}
		case "room":
			if course, ok := s.snap.Course(v.CourseID); ok && len(course.RoomTypes) > 0 && roomID != "" {
				if room, ok := s.snap.Room(roomID); ok && room.Type == course.RoomTypes[0] {
					return i
				}
			}
		}
	}
	return len(order)
}

// dominantRejection summarises why a unit found no candidates, based on the
// most frequent rejection rule seen during its final enumeration.
func (s *solver) dominantRejection(u *unit) string {
	before := make(map[string]int, len(s.rejectionTally))
	for k, v := range s.rejectionTally {
		before[k] = v
	}
	s.enumerate(u)
	topRule := ""
	topCount := 0
	for rule, count := range s.rejectionTally {
		delta := count - before[rule]
		if delta > topCount {
			topCount = delta
			topRule = rule
		}
	}
	if topRule == "" {
		return "no feasible slot and room combination"
	}
	return fmt.Sprintf("no feasible candidate: mostly rejected by %s", topRule)
}

func (s *solver) report(stage string, percent int, message string) {
	if s.progress == nil {
		return
	}
	select {
	case s.progress <- Progress{Stage: stage, Percent: percent, Message: message}:
	default:
		// Callers drain asynchronously; a slow consumer never stalls the run.
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
