package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tieRankSnapshot() *Snapshot {
	return NewSnapshot(
		[]TeacherInfo{{ID: "teacher-1", Preferred: []TimeSlot{{Day: 1, Period: 2}}}},
		[]ClassInfo{{ID: "class-1", StudentCount: 30}},
		[]CourseInfo{{ID: "pe", RoomTypes: []string{"gym"}}},
		[]RoomInfo{
			{ID: "room-1", Type: "standard", Capacity: 40},
			{ID: "room-2", Type: "gym", Capacity: 60},
		},
	)
}

func TestTieRankFollowsPriorityOrder(t *testing.T) {
	rules := DefaultRules()
	rules.Conflicts.PriorityOrder = []string{"room", "teacher", "class"}
	s := newSolver(&rules, tieRankSnapshot(), NewState(), nil, AlgorithmConfig{}, nil, nil)

	v := &Variable{ID: 1, ClassID: "class-1", CourseID: "pe", TeacherID: "teacher-1", BlockSize: 1}

	assert.Equal(t, 0, s.tieRank(v, TimeSlot{Day: 1, Period: 3}, "room-2"), "room-type match ranks first")
	assert.Equal(t, 1, s.tieRank(v, TimeSlot{Day: 1, Period: 2}, "room-1"), "teacher preference ranks second")
	assert.Equal(t, 3, s.tieRank(v, TimeSlot{Day: 1, Period: 3}, "room-1"), "no preference satisfied ranks last")

	rules.Conflicts.PriorityOrder = []string{"teacher", "room", "class"}
	assert.Equal(t, 0, s.tieRank(v, TimeSlot{Day: 1, Period: 2}, "room-1"))
	assert.Equal(t, 1, s.tieRank(v, TimeSlot{Day: 1, Period: 3}, "room-2"))
}

func TestLessConstrainedOrdersUnits(t *testing.T) {
	block := &unit{blockID: "b", order: 5, vars: []*Variable{{ID: 5}, {ID: 6}}}
	standalone := &unit{order: 1, vars: []*Variable{{ID: 1}}}

	few := make([]candidate, 1)
	many := make([]candidate, 3)

	assert.True(t, lessConstrained(standalone, few, block, many), "fewer candidates wins regardless of shape")
	assert.True(t, lessConstrained(block, few, standalone, few), "blocks go before standalone variables on equal counts")
	assert.False(t, lessConstrained(block, many, standalone, few))

	earlier := &unit{order: 1, vars: []*Variable{{ID: 1}}}
	later := &unit{order: 2, vars: []*Variable{{ID: 2}}}
	assert.True(t, lessConstrained(earlier, few, later, few), "declaration order is the final tie-break")
}

func TestEnumerateSkipsOccupiedSlots(t *testing.T) {
	rules := DefaultRules()
	rules.Time = TimeRules{DaysPerWeek: 1, PeriodsPerDay: 2}
	snap := testSnapshot()
	state := NewState()

	v1 := &Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}
	v2 := &Variable{ID: 2, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}
	s := newSolver(&rules, snap, state, []*Variable{v1, v2}, AlgorithmConfig{}, nil, nil)

	state.Place(v1, TimeSlot{Day: 1, Period: 1}, "room-1")

	cands := s.enumerate(&unit{vars: []*Variable{v2}, order: 2})
	for _, c := range cands {
		assert.NotEqual(t, 1, c.slot.Period, "the class is busy in period 1")
	}
	assert.NotEmpty(t, cands)
}
