package engine

import "sort"

type occupancy struct {
	resource string
	slot     TimeSlot
}

// State is the per-run mutable occupancy index. It is owned by exactly one
// solver run, never shared, and discarded when the run ends. Occupant lists
// normally hold a single variable; longer lists only appear when a policy
// allowed a collision through.
type State struct {
	byTeacher map[occupancy][]int
	byRoom    map[occupancy][]int
	byClass   map[occupancy][]int

	assignments map[int]Assignment
	variables   map[int]*Variable

	// classLog records the teacher of each committed placement per class,
	// in commit order. The rotation penalty reads its tail.
	classLog map[string][]string
}

// NewState allocates empty indexes for one run.
func NewState() *State {
	return &State{
		byTeacher:   make(map[occupancy][]int),
		byRoom:      make(map[occupancy][]int),
		byClass:     make(map[occupancy][]int),
		assignments: make(map[int]Assignment),
		variables:   make(map[int]*Variable),
		classLog:    make(map[string][]string),
	}
}

// Place commits a variable to a slot and room, updating all three indexes.
func (st *State) Place(v *Variable, slot TimeSlot, roomID string) {
	st.assignments[v.ID] = Assignment{VariableID: v.ID, Slot: slot, RoomID: roomID}
	st.variables[v.ID] = v
	if v.TeacherID != "" {
		st.byTeacher[occupancy{v.TeacherID, slot}] = append(st.byTeacher[occupancy{v.TeacherID, slot}], v.ID)
	}
	if roomID != "" {
		st.byRoom[occupancy{roomID, slot}] = append(st.byRoom[occupancy{roomID, slot}], v.ID)
	}
	st.byClass[occupancy{v.ClassID, slot}] = append(st.byClass[occupancy{v.ClassID, slot}], v.ID)
	st.classLog[v.ClassID] = append(st.classLog[v.ClassID], v.TeacherID)
}

// Remove revokes a variable's assignment. No-op when the variable is not
// placed.
func (st *State) Remove(v *Variable) {
	a, ok := st.assignments[v.ID]
	if !ok {
		return
	}
	delete(st.assignments, v.ID)
	delete(st.variables, v.ID)
	if v.TeacherID != "" {
		st.byTeacher[occupancy{v.TeacherID, a.Slot}] = removeID(st.byTeacher[occupancy{v.TeacherID, a.Slot}], v.ID)
	}
	if a.RoomID != "" {
		st.byRoom[occupancy{a.RoomID, a.Slot}] = removeID(st.byRoom[occupancy{a.RoomID, a.Slot}], v.ID)
	}
	st.byClass[occupancy{v.ClassID, a.Slot}] = removeID(st.byClass[occupancy{v.ClassID, a.Slot}], v.ID)
	st.classLog[v.ClassID] = removeLastTeacher(st.classLog[v.ClassID], v.TeacherID)
}

func removeID(ids []int, id int) []int {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func removeLastTeacher(log []string, teacherID string) []string {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i] == teacherID {
			return append(log[:i], log[i+1:]...)
		}
	}
	return log
}

// Assignment returns the current assignment of a variable.
func (st *State) Assignment(varID int) (Assignment, bool) {
	a, ok := st.assignments[varID]
	return a, ok
}

// Assignments lists current assignments ordered by variable id.
func (st *State) Assignments() []Assignment {
	out := make([]Assignment, 0, len(st.assignments))
	for _, a := range st.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariableID < out[j].VariableID })
	return out
}

// Len reports the number of placed variables.
func (st *State) Len() int {
	return len(st.assignments)
}

// TeacherOccupants returns variables occupying the teacher at the slot.
func (st *State) TeacherOccupants(teacherID string, slot TimeSlot) []int {
	return st.byTeacher[occupancy{teacherID, slot}]
}

// RoomOccupants returns variables occupying the room at the slot.
func (st *State) RoomOccupants(roomID string, slot TimeSlot) []int {
	return st.byRoom[occupancy{roomID, slot}]
}

// ClassOccupants returns variables occupying the class at the slot.
func (st *State) ClassOccupants(classID string, slot TimeSlot) []int {
	return st.byClass[occupancy{classID, slot}]
}

// TeacherPeriods returns the sorted periods the teacher is busy on a day.
func (st *State) TeacherPeriods(teacherID string, day int, periodsPerDay int) []int {
	var periods []int
	for p := 1; p <= periodsPerDay; p++ {
		if len(st.byTeacher[occupancy{teacherID, TimeSlot{Day: day, Period: p}}]) > 0 {
			periods = append(periods, p)
		}
	}
	return periods
}

// ClassCourseCount counts placements of a course for a class on one day.
func (st *State) ClassCourseCount(classID, courseID string, day int, periodsPerDay int) int {
	count := 0
	for p := 1; p <= periodsPerDay; p++ {
		for _, id := range st.byClass[occupancy{classID, TimeSlot{Day: day, Period: p}}] {
			if v, ok := st.variables[id]; ok && v.CourseID == courseID {
				count++
			}
		}
	}
	return count
}

// ClassCourseDays reports, per day, whether the class has the course placed.
func (st *State) ClassCourseDays(classID, courseID string, daysPerWeek, periodsPerDay int) []bool {
	days := make([]bool, daysPerWeek+1)
	for day := 1; day <= daysPerWeek; day++ {
		if st.ClassCourseCount(classID, courseID, day, periodsPerDay) > 0 {
			days[day] = true
		}
	}
	return days
}

// RecentTeachers returns the teachers of the class's most recent placements,
// newest last, up to n entries.
func (st *State) RecentTeachers(classID string, n int) []string {
	log := st.classLog[classID]
	if len(log) <= n {
		return log
	}
	return log[len(log)-n:]
}

// PlacedSiblings returns assignments of the block group's placed members,
// sorted by period.
func (st *State) PlacedSiblings(groupID string, vars []*Variable) []Assignment {
	if groupID == "" {
		return nil
	}
	var placed []Assignment
	for _, v := range vars {
		if v.BlockGroupID != groupID {
			continue
		}
		if a, ok := st.assignments[v.ID]; ok {
			placed = append(placed, a)
		}
	}
	sort.Slice(placed, func(i, j int) bool { return placed[i].Slot.Period < placed[j].Slot.Period })
	return placed
}

// Variable returns the placed variable by id.
func (st *State) Variable(id int) (*Variable, bool) {
	v, ok := st.variables[id]
	return v, ok
}
