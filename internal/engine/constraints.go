package engine

import "fmt"

// Rejection is the structured result of a failed hard predicate. Rejections
// never propagate as Go errors; the solver consumes them to discard
// candidates and to explain unassigned variables.
type Rejection struct {
	Rule   string
	Detail string
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Rule, r.Detail)
}

// Soft penalty weights. Values are relative; lower summed penalty wins.
const (
	penaltyDailyOverload      = 8
	penaltyContinuousOverload = 6
	penaltyRestViolation      = 4
	penaltyEdgePeriod         = 5
	penaltyOffPreferred       = 2
	penaltyAvoidSlot          = 6
	penaltyDailyOccurrence    = 7
	penaltyConcentration      = 5
	penaltyRotationInterval   = 3
	penaltyRotationStreak     = 4
)

// evaluator holds the pure constraint predicates. It reads the rule set and
// snapshot, inspects the working state, and never mutates either.
type evaluator struct {
	rules *Rules
	snap  *Snapshot
	state *State
	vars  []*Variable
}

// checkHard runs every hard predicate for the candidate. A nil result means
// the candidate survives; otherwise the rejection names the failed rule.
func (e *evaluator) checkHard(v *Variable, slot TimeSlot, roomID string) *Rejection {
	if !e.rules.slotInGrid(slot) {
		return &Rejection{Rule: "grid", Detail: fmt.Sprintf("slot %s outside the time grid", slot)}
	}
	if r := e.checkExclusivity(v, slot, roomID); r != nil {
		return r
	}
	if r := e.checkTeacherAvailability(v, slot); r != nil {
		return r
	}
	if r := e.checkRoom(v, slot, roomID); r != nil {
		return r
	}
	return e.checkContinuity(v, slot)
}

// checkExclusivity rejects occupied resources unless the resource's
// conflict-resolution policy is ignore; then the collision is allowed and
// recorded later by the detector.
func (e *evaluator) checkExclusivity(v *Variable, slot TimeSlot, roomID string) *Rejection {
	if v.TeacherID != "" && e.rules.Conflicts.Teacher != PolicyIgnore && len(e.state.TeacherOccupants(v.TeacherID, slot)) > 0 {
		return &Rejection{Rule: "teacher-busy", Detail: fmt.Sprintf("teacher %s already teaches at %s", v.TeacherID, slot)}
	}
	if roomID != "" && e.rules.Conflicts.Room != PolicyIgnore && len(e.state.RoomOccupants(roomID, slot)) > 0 {
		return &Rejection{Rule: "room-busy", Detail: fmt.Sprintf("room %s already occupied at %s", roomID, slot)}
	}
	if e.rules.Conflicts.Class != PolicyIgnore && len(e.state.ClassOccupants(v.ClassID, slot)) > 0 {
		return &Rejection{Rule: "class-busy", Detail: fmt.Sprintf("class %s already scheduled at %s", v.ClassID, slot)}
	}
	return nil
}

func (e *evaluator) checkTeacherAvailability(v *Variable, slot TimeSlot) *Rejection {
	for _, forbidden := range e.rules.ForbiddenSlots {
		if forbidden == slot {
			return &Rejection{Rule: "forbidden-slot", Detail: fmt.Sprintf("slot %s is globally forbidden", slot)}
		}
	}
	teacher, ok := e.snap.Teacher(v.TeacherID)
	if !ok {
		return nil
	}
	for _, blocked := range teacher.Unavailable {
		if blocked == slot {
			return &Rejection{Rule: "teacher-unavailable", Detail: fmt.Sprintf("teacher %s is unavailable at %s", v.TeacherID, slot)}
		}
	}
	return nil
}

func (e *evaluator) checkRoom(v *Variable, slot TimeSlot, roomID string) *Rejection {
	if roomID == "" {
		return nil
	}
	room, ok := e.snap.Room(roomID)
	if !ok {
		return &Rejection{Rule: "room-unknown", Detail: fmt.Sprintf("room %s not in snapshot", roomID)}
	}
	for _, blocked := range room.Unavailable {
		if blocked == slot {
			return &Rejection{Rule: "room-unavailable", Detail: fmt.Sprintf("room %s is unavailable at %s", roomID, slot)}
		}
	}
	course, _ := e.snap.Course(v.CourseID)
	if len(course.RoomTypes) > 0 {
		match := false
		for _, t := range course.RoomTypes {
			if room.Type == t {
				match = true
				break
			}
		}
		if !match {
			return &Rejection{Rule: "room-type", Detail: fmt.Sprintf("room %s type %q not usable for course %s", roomID, room.Type, v.CourseID)}
		}
	}
	if e.rules.Room.RespectCapacityLimits {
		if class, ok := e.snap.Class(v.ClassID); ok && room.Capacity > 0 && room.Capacity < class.StudentCount {
			return &Rejection{Rule: "room-capacity", Detail: fmt.Sprintf("room %s capacity %d below class size %d", roomID, room.Capacity, class.StudentCount)}
		}
	}
	return nil
}

// checkContinuity enforces block placement: members after the first must sit
// on the next unfilled consecutive period of the same day, and a block never
// crosses the lunch boundary or exceeds the arrangement's continuous limit.
func (e *evaluator) checkContinuity(v *Variable, slot TimeSlot) *Rejection {
	if v.BlockGroupID == "" {
		return nil
	}
	if max := e.rules.Arrangement.MaxContinuousHours; max > 0 && v.BlockSize > max {
		return &Rejection{Rule: "block-length", Detail: fmt.Sprintf("block of %d exceeds maxContinuousHours %d", v.BlockSize, max)}
	}
	siblings := e.state.PlacedSiblings(v.BlockGroupID, e.vars)
	if len(siblings) == 0 {
		// First member: the whole block must fit from this period on.
		end := slot.Period + v.BlockSize - 1
		if end > e.rules.Time.PeriodsPerDay {
			return &Rejection{Rule: "block-fit", Detail: fmt.Sprintf("block of %d starting at %s runs past the day", v.BlockSize, slot)}
		}
		if e.crossesLunch(slot.Period, end) {
			return &Rejection{Rule: "block-lunch", Detail: fmt.Sprintf("block of %d starting at %s crosses the lunch boundary", v.BlockSize, slot)}
		}
		return nil
	}
	last := siblings[len(siblings)-1]
	if slot.Day != last.Slot.Day || slot.Period != last.Slot.Period+1 {
		return &Rejection{Rule: "block-consecutive", Detail: fmt.Sprintf("block member must follow %s", last.Slot)}
	}
	if e.crossesLunch(siblings[0].Slot.Period, slot.Period) {
		return &Rejection{Rule: "block-lunch", Detail: "block crosses the lunch boundary"}
	}
	return nil
}

func (e *evaluator) crossesLunch(startPeriod, endPeriod int) bool {
	lunch := e.rules.Time.LunchAfterPeriod
	return lunch > 0 && startPeriod <= lunch && endPeriod > lunch
}

// penaltyItem names one soft-constraint hit for statistics and suggestions.
type penaltyItem struct {
	rule  string
	value int
}

// softPenalty sums all soft-constraint penalties of a candidate. Always
// non-negative; preferences are expressed as penalties for missing them so
// the score ordering stays monotone.
func (e *evaluator) softPenalty(v *Variable, slot TimeSlot, roomID string) int {
	total := 0
	for _, item := range e.softBreakdown(v, slot, roomID) {
		total += item.value
	}
	return total
}

func (e *evaluator) softBreakdown(v *Variable, slot TimeSlot, roomID string) []penaltyItem {
	var items []penaltyItem
	items = append(items, e.teacherLoadPenalties(v, slot)...)
	items = append(items, e.placementPenalties(v, slot)...)
	items = append(items, e.distributionPenalties(v, slot)...)
	items = append(items, e.rotationPenalties(v)...)
	return items
}

func (e *evaluator) teacherLoadPenalties(v *Variable, slot TimeSlot) []penaltyItem {
	var items []penaltyItem
	limits := e.rules.Teacher
	periods := e.state.TeacherPeriods(v.TeacherID, slot.Day, e.rules.Time.PeriodsPerDay)

	if limits.MaxDailyHours > 0 && len(periods)+1 > limits.MaxDailyHours {
		items = append(items, penaltyItem{"teacher-daily-load", (len(periods) + 1 - limits.MaxDailyHours) * penaltyDailyOverload})
	}

	if limits.MaxContinuousHours > 0 {
		run := 1
		for p := slot.Period - 1; p >= 1 && contains(periods, p); p-- {
			run++
		}
		for p := slot.Period + 1; p <= e.rules.Time.PeriodsPerDay && contains(periods, p); p++ {
			run++
		}
		if run > limits.MaxContinuousHours {
			items = append(items, penaltyItem{"teacher-continuous-load", (run - limits.MaxContinuousHours) * penaltyContinuousOverload})
		}
	}

	if limits.MinRestBetweenCourses > 0 {
		for _, p := range periods {
			gap := slot.Period - p
			if gap < 0 {
				gap = -gap
			}
			// Adjacent periods inside one continuous block are not a
			// rest violation.
			if gap == 1 && v.BlockGroupID != "" {
				continue
			}
			if gap >= 1 && gap-1 < limits.MinRestBetweenCourses {
				items = append(items, penaltyItem{"teacher-rest", penaltyRestViolation})
				break
			}
		}
	}
	return items
}

func (e *evaluator) placementPenalties(v *Variable, slot TimeSlot) []penaltyItem {
	var items []penaltyItem
	if course, ok := e.snap.Course(v.CourseID); ok && course.AvoidFirstLastPeriod {
		if slot.Period == 1 || slot.Period == e.rules.Time.PeriodsPerDay {
			items = append(items, penaltyItem{"edge-period", penaltyEdgePeriod})
		}
	}
	if len(v.Preferred) > 0 && !containsSlot(v.Preferred, slot) {
		items = append(items, penaltyItem{"off-preferred", penaltyOffPreferred})
	}
	if teacher, ok := e.snap.Teacher(v.TeacherID); ok {
		if len(teacher.Preferred) > 0 && !containsSlot(teacher.Preferred, slot) {
			items = append(items, penaltyItem{"off-teacher-preferred", penaltyOffPreferred})
		}
	}
	if containsSlot(v.Avoid, slot) {
		items = append(items, penaltyItem{"avoid-slot", penaltyAvoidSlot})
	}
	return items
}

// distributionPenalties applies the core-subject strategy: daily occurrence
// caps and, when even distribution is enforced, consecutive-day concentration
// scaled linearly by balanceWeight.
func (e *evaluator) distributionPenalties(v *Variable, slot TimeSlot) []penaltyItem {
	if v.Tier != TierCore {
		return nil
	}
	strategy := e.rules.CoreSubjects
	var items []penaltyItem

	if strategy.MaxDailyOccurrences > 0 {
		hours := e.state.ClassCourseCount(v.ClassID, v.CourseID, slot.Day, e.rules.Time.PeriodsPerDay)
		// Members of one block count as a single occurrence.
		sameDaySiblings := 0
		if v.BlockGroupID != "" {
			for _, s := range e.state.PlacedSiblings(v.BlockGroupID, e.vars) {
				if s.Slot.Day == slot.Day {
					sameDaySiblings++
				}
			}
		}
		// This placement, together with any same-day siblings, counts as
		// one occurrence.
		occurrences := hours - sameDaySiblings + 1
		if occurrences > strategy.MaxDailyOccurrences {
			items = append(items, penaltyItem{"core-daily-occurrence", (occurrences - strategy.MaxDailyOccurrences) * penaltyDailyOccurrence})
		}
	}

	if strategy.EnforceEvenDistribution && strategy.MaxConcentration > 0 {
		days := e.state.ClassCourseDays(v.ClassID, v.CourseID, e.rules.Time.DaysPerWeek, e.rules.Time.PeriodsPerDay)
		days[slot.Day] = true
		run := 0
		longest := 0
		for day := 1; day <= e.rules.Time.DaysPerWeek; day++ {
			if days[day] {
				run++
				if run > longest {
					longest = run
				}
			} else {
				run = 0
			}
		}
		if longest > strategy.MaxConcentration {
			delta := (longest - strategy.MaxConcentration) * penaltyConcentration
			items = append(items, penaltyItem{"core-concentration", delta * strategy.BalanceWeight / 100})
		}
	}
	return items
}

func (e *evaluator) rotationPenalties(v *Variable) []penaltyItem {
	rotation := e.rules.Rotation
	if !rotation.EnableRotation {
		return nil
	}
	var items []penaltyItem
	if rotation.MinIntervalBetweenClasses > 0 {
		for _, teacherID := range e.state.RecentTeachers(v.ClassID, rotation.MinIntervalBetweenClasses) {
			if teacherID == v.TeacherID {
				items = append(items, penaltyItem{"rotation-interval", penaltyRotationInterval})
				break
			}
		}
	}
	if rotation.MaxConsecutiveClasses > 0 {
		recent := e.state.RecentTeachers(v.ClassID, rotation.MaxConsecutiveClasses)
		if len(recent) >= rotation.MaxConsecutiveClasses {
			streak := true
			for _, teacherID := range recent {
				if teacherID != v.TeacherID {
					streak = false
					break
				}
			}
			if streak {
				items = append(items, penaltyItem{"rotation-streak", penaltyRotationStreak})
			}
		}
	}
	return items
}

func contains(values []int, target int) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsSlot(slots []TimeSlot, target TimeSlot) bool {
	for _, s := range slots {
		if s == target {
			return true
		}
	}
	return false
}
