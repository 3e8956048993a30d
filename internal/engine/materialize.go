package engine

import "sort"

// StatusActive is the status stamped on materialized schedule entries.
const StatusActive = "ACTIVE"

// materialize converts finalized assignments into the externally persisted
// schedule-record shape, sorted by class, day and period. Persistence itself
// belongs to the caller.
func (s *solver) materialize() []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, s.state.Len())
	for _, a := range s.state.Assignments() {
		v, ok := s.state.Variable(a.VariableID)
		if !ok {
			continue
		}
		entries = append(entries, ScheduleEntry{
			ClassID:   v.ClassID,
			CourseID:  v.CourseID,
			TeacherID: v.TeacherID,
			RoomID:    a.RoomID,
			DayOfWeek: a.Slot.Day,
			Period:    a.Slot.Period,
			WeekType:  v.WeekType,
			StartWeek: v.StartWeek,
			EndWeek:   v.EndWeek,
			Status:    StatusActive,
			Preserved: v.Preserved,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.CourseID < b.CourseID
	})
	return entries
}
