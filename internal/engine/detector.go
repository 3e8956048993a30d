package engine

import (
	"fmt"
	"sort"
	"strings"
)

// detect re-scans all three busy indexes of the finalized state and derives
// conflict records, run statistics and best-effort suggestions. It is a pure
// read of the state (soft re-scoring lifts each variable out and puts it
// back), so running it twice yields identical results.
func (s *solver) detect() ([]ConflictRecord, Statistics, []string) {
	conflicts := s.scanConflicts()

	softScore, softViolations := s.totalSoftPenalty()

	hard := 0
	for _, c := range conflicts {
		if !c.Warning {
			hard++
		}
	}

	stats := Statistics{
		TotalVariables:      len(s.vars),
		AssignedVariables:   s.state.Len(),
		UnassignedVariables: len(s.vars) - s.state.Len(),
		HardViolations:      hard,
		SoftViolations:      softViolations,
		TotalScore:          softScore,
	}

	return conflicts, stats, s.suggestions(conflicts)
}

func (s *solver) scanConflicts() []ConflictRecord {
	var out []ConflictRecord
	days := s.rules.Time.DaysPerWeek
	periods := s.rules.Time.PeriodsPerDay

	seenTeachers := make(map[string]bool)
	seenRooms := make(map[string]bool)
	seenClasses := make(map[string]bool)
	for _, a := range s.state.Assignments() {
		v, ok := s.state.Variable(a.VariableID)
		if !ok {
			continue
		}
		seenTeachers[v.TeacherID] = true
		seenClasses[v.ClassID] = true
		if a.RoomID != "" {
			seenRooms[a.RoomID] = true
		}
	}

	scan := func(kind ResourceKind, ids []string, occupants func(string, TimeSlot) []int) {
		policy := s.rules.Conflicts.PolicyFor(kind)
		for _, id := range ids {
			for day := 1; day <= days; day++ {
				for period := 1; period <= periods; period++ {
					slot := TimeSlot{Day: day, Period: period}
					vars := occupants(id, slot)
					if len(vars) <= 1 {
						continue
					}
					sorted := append([]int{}, vars...)
					sort.Ints(sorted)
					out = append(out, ConflictRecord{
						Kind:        kind,
						ResourceID:  id,
						Slot:        slot,
						VariableIDs: sorted,
						Warning:     policy == PolicyWarning,
					})
				}
			}
		}
	}

	scan(ResourceTeacher, sortedKeys(seenTeachers), s.state.TeacherOccupants)
	scan(ResourceRoom, sortedKeys(seenRooms), s.state.RoomOccupants)
	scan(ResourceClass, sortedKeys(seenClasses), s.state.ClassOccupants)
	return out
}

// suggestions turns aggregate patterns in unassigned variables and conflicts
// into human-readable hints. Best-effort text, not authoritative.
func (s *solver) suggestions(conflicts []ConflictRecord) []string {
	var out []string

	// Room-type pressure: unassigned courses whose required room types are
	// scarce in the snapshot.
	roomShortage := make(map[string]int)
	teacherShortage := make(map[string]int)
	for id, reason := range s.unassigned {
		v := s.variableByID(id)
		if v == nil {
			continue
		}
		if strings.Contains(reason, "room") {
			if course, ok := s.snap.Course(v.CourseID); ok {
				for _, t := range course.RoomTypes {
					roomShortage[t]++
				}
			}
		}
		if strings.Contains(reason, "teacher") {
			teacherShortage[v.TeacherID]++
		}
	}
	for _, roomType := range sortedCountKeys(roomShortage) {
		available := s.snap.RoomsOfType([]string{roomType})
		out = append(out, fmt.Sprintf("increase available rooms of type %q: %d teaching hours could not be placed (%d rooms available)", roomType, roomShortage[roomType], available))
	}
	for _, teacherID := range sortedCountKeys(teacherShortage) {
		name := teacherID
		if t, ok := s.snap.Teacher(teacherID); ok && t.Name != "" {
			name = t.Name
		}
		out = append(out, fmt.Sprintf("teacher %s has %d unplaced hours: review weekly load or availability windows", name, teacherShortage[teacherID]))
	}

	// Teachers over their weekly cap after placement.
	weekly := make(map[string]int)
	for _, a := range s.state.Assignments() {
		if v, ok := s.state.Variable(a.VariableID); ok {
			weekly[v.TeacherID]++
		}
	}
	for _, teacherID := range sortedCountKeys(weekly) {
		t, ok := s.snap.Teacher(teacherID)
		if !ok || t.MaxWeeklyHours <= 0 {
			continue
		}
		if weekly[teacherID] > t.MaxWeeklyHours {
			name := t.Name
			if name == "" {
				name = teacherID
			}
			out = append(out, fmt.Sprintf("teacher %s exceeds weekly load: %d hours scheduled, limit %d", name, weekly[teacherID], t.MaxWeeklyHours))
		}
	}

	if len(conflicts) > 0 {
		out = append(out, fmt.Sprintf("%d resource collisions were allowed through by conflict policies: review the rule set if exclusivity is required", len(conflicts)))
	}
	return out
}

func (s *solver) variableByID(id int) *Variable {
	for _, v := range s.vars {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// unassignedList converts the solver's unassigned map into stable report rows.
func (s *solver) unassignedList() []UnassignedVariable {
	out := make([]UnassignedVariable, 0, len(s.unassigned))
	for id, reason := range s.unassigned {
		v := s.variableByID(id)
		if v == nil {
			continue
		}
		out = append(out, UnassignedVariable{
			VariableID: id,
			ClassID:    v.ClassID,
			CourseID:   v.CourseID,
			TeacherID:  v.TeacherID,
			Reason:     reason,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariableID < out[j].VariableID })
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCountKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
