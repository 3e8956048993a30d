package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatePlaceRemoveRoundTrip(t *testing.T) {
	state := NewState()
	v := &Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}
	slot := TimeSlot{Day: 1, Period: 1}

	state.Place(v, slot, "room-1")
	assert.Equal(t, 1, state.Len())
	assert.Equal(t, []int{1}, state.TeacherOccupants("teacher-1", slot))
	assert.Equal(t, []int{1}, state.RoomOccupants("room-1", slot))
	assert.Equal(t, []int{1}, state.ClassOccupants("class-1", slot))

	state.Remove(v)
	assert.Equal(t, 0, state.Len())
	assert.Empty(t, state.TeacherOccupants("teacher-1", slot))
	assert.Empty(t, state.RoomOccupants("room-1", slot))
	assert.Empty(t, state.ClassOccupants("class-1", slot))
	assert.Empty(t, state.RecentTeachers("class-1", 5))
}

func TestStateRemoveUnplacedIsNoop(t *testing.T) {
	state := NewState()
	state.Remove(&Variable{ID: 7, ClassID: "class-1", TeacherID: "teacher-1"})
	assert.Equal(t, 0, state.Len())
}

func TestStatePlacedSiblingsSortedByPeriod(t *testing.T) {
	state := NewState()
	vars := []*Variable{
		{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockGroupID: "g", BlockSize: 3},
		{ID: 2, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockGroupID: "g", BlockSize: 3},
		{ID: 3, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockGroupID: "g", BlockSize: 3},
	}
	state.Place(vars[1], TimeSlot{Day: 2, Period: 4}, "")
	state.Place(vars[0], TimeSlot{Day: 2, Period: 3}, "")

	siblings := state.PlacedSiblings("g", vars)
	require.Len(t, siblings, 2)
	assert.Equal(t, 3, siblings[0].Slot.Period)
	assert.Equal(t, 4, siblings[1].Slot.Period)

	assert.Empty(t, state.PlacedSiblings("", vars))
}

func TestStateTeacherPeriods(t *testing.T) {
	state := NewState()
	state.Place(&Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}, TimeSlot{Day: 1, Period: 2}, "")
	state.Place(&Variable{ID: 2, ClassID: "class-2", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}, TimeSlot{Day: 1, Period: 5}, "")
	state.Place(&Variable{ID: 3, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}, TimeSlot{Day: 2, Period: 1}, "")

	assert.Equal(t, []int{2, 5}, state.TeacherPeriods("teacher-1", 1, 8))
	assert.Equal(t, []int{1}, state.TeacherPeriods("teacher-1", 2, 8))
}
