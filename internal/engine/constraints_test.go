package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator(rules *Rules, snap *Snapshot) (*evaluator, *State) {
	state := NewState()
	return &evaluator{rules: rules, snap: snap, state: state}, state
}

func TestCheckHardRejectsBusyResources(t *testing.T) {
	rules := DefaultRules()
	eval, state := newEvaluator(&rules, testSnapshot())
	slot := TimeSlot{Day: 1, Period: 2}

	occupied := &Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}
	state.Place(occupied, slot, "room-1")

	sameTeacher := &Variable{ID: 2, ClassID: "class-2", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}
	rej := eval.checkHard(sameTeacher, slot, "room-2")
	require.NotNil(t, rej)
	assert.Equal(t, "teacher-busy", rej.Rule)

	sameRoom := &Variable{ID: 3, ClassID: "class-2", CourseID: "math", TeacherID: "teacher-2", BlockSize: 1}
	rej = eval.checkHard(sameRoom, slot, "room-1")
	require.NotNil(t, rej)
	assert.Equal(t, "room-busy", rej.Rule)

	sameClass := &Variable{ID: 4, ClassID: "class-1", CourseID: "pe", TeacherID: "teacher-2", BlockSize: 1}
	rej = eval.checkHard(sameClass, slot, "room-2")
	require.NotNil(t, rej)
	assert.Equal(t, "class-busy", rej.Rule)
}

func TestCheckHardIgnorePolicyAllowsCollision(t *testing.T) {
	rules := DefaultRules()
	rules.Conflicts.Teacher = PolicyIgnore
	eval, state := newEvaluator(&rules, testSnapshot())
	slot := TimeSlot{Day: 1, Period: 2}

	state.Place(&Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}, slot, "room-1")

	v := &Variable{ID: 2, ClassID: "class-2", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}
	assert.Nil(t, eval.checkHard(v, slot, "room-2"), "ignore policy lets the collision through")
}

func TestCheckHardTeacherAvailability(t *testing.T) {
	rules := DefaultRules()
	rules.ForbiddenSlots = []TimeSlot{{Day: 5, Period: 8}}
	snap := NewSnapshot(
		[]TeacherInfo{{ID: "teacher-1", Unavailable: []TimeSlot{{Day: 2, Period: 1}}}},
		[]ClassInfo{{ID: "class-1", StudentCount: 30}},
		[]CourseInfo{{ID: "math"}},
		[]RoomInfo{{ID: "room-1", Type: "standard", Capacity: 40}},
	)
	eval, _ := newEvaluator(&rules, snap)
	v := &Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}

	rej := eval.checkHard(v, TimeSlot{Day: 2, Period: 1}, "room-1")
	require.NotNil(t, rej)
	assert.Equal(t, "teacher-unavailable", rej.Rule)

	rej = eval.checkHard(v, TimeSlot{Day: 5, Period: 8}, "room-1")
	require.NotNil(t, rej)
	assert.Equal(t, "forbidden-slot", rej.Rule)

	assert.Nil(t, eval.checkHard(v, TimeSlot{Day: 1, Period: 1}, "room-1"))
}

func TestCheckHardRoomSuitability(t *testing.T) {
	rules := DefaultRules()
	eval, _ := newEvaluator(&rules, testSnapshot())

	pe := &Variable{ID: 1, ClassID: "class-1", CourseID: "pe", TeacherID: "teacher-1", BlockSize: 1}
	rej := eval.checkHard(pe, TimeSlot{Day: 1, Period: 1}, "room-1")
	require.NotNil(t, rej)
	assert.Equal(t, "room-type", rej.Rule)
	assert.Nil(t, eval.checkHard(pe, TimeSlot{Day: 1, Period: 1}, "room-2"))
}

func TestCheckHardRoomCapacity(t *testing.T) {
	rules := DefaultRules()
	snap := NewSnapshot(
		[]TeacherInfo{{ID: "teacher-1"}},
		[]ClassInfo{{ID: "class-1", StudentCount: 45}},
		[]CourseInfo{{ID: "math"}},
		[]RoomInfo{{ID: "small", Type: "standard", Capacity: 20}},
	)
	eval, _ := newEvaluator(&rules, snap)
	v := &Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}

	rej := eval.checkHard(v, TimeSlot{Day: 1, Period: 1}, "small")
	require.NotNil(t, rej)
	assert.Equal(t, "room-capacity", rej.Rule)

	rules.Room.RespectCapacityLimits = false
	assert.Nil(t, eval.checkHard(v, TimeSlot{Day: 1, Period: 1}, "small"))
}

func TestCheckContinuityBlockMustFollowSibling(t *testing.T) {
	rules := DefaultRules()
	first := &Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockGroupID: "g1", BlockSize: 2}
	second := &Variable{ID: 2, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockGroupID: "g1", BlockSize: 2}
	eval, state := newEvaluator(&rules, testSnapshot())
	eval.vars = []*Variable{first, second}

	state.Place(first, TimeSlot{Day: 1, Period: 2}, "room-1")

	rej := eval.checkContinuity(second, TimeSlot{Day: 1, Period: 4})
	require.NotNil(t, rej)
	assert.Equal(t, "block-consecutive", rej.Rule)

	rej = eval.checkContinuity(second, TimeSlot{Day: 2, Period: 3})
	require.NotNil(t, rej)
	assert.Equal(t, "block-consecutive", rej.Rule)

	assert.Nil(t, eval.checkContinuity(second, TimeSlot{Day: 1, Period: 3}))
}

func TestCheckContinuityLunchBoundary(t *testing.T) {
	rules := DefaultRules() // lunch after period 4
	v := &Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockGroupID: "g1", BlockSize: 2}
	eval, _ := newEvaluator(&rules, testSnapshot())
	eval.vars = []*Variable{v}

	rej := eval.checkContinuity(v, TimeSlot{Day: 1, Period: 4})
	require.NotNil(t, rej)
	assert.Equal(t, "block-lunch", rej.Rule)

	assert.Nil(t, eval.checkContinuity(v, TimeSlot{Day: 1, Period: 3}))
	assert.Nil(t, eval.checkContinuity(v, TimeSlot{Day: 1, Period: 5}))
}

func TestCheckContinuityBlockLengthLimit(t *testing.T) {
	rules := DefaultRules()
	rules.Arrangement.MaxContinuousHours = 2
	v := &Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockGroupID: "g1", BlockSize: 3}
	eval, _ := newEvaluator(&rules, testSnapshot())
	eval.vars = []*Variable{v}

	rej := eval.checkContinuity(v, TimeSlot{Day: 1, Period: 1})
	require.NotNil(t, rej)
	assert.Equal(t, "block-length", rej.Rule)
}

func TestSoftPenaltyEdgePeriod(t *testing.T) {
	rules := DefaultRules()
	snap := NewSnapshot(
		[]TeacherInfo{{ID: "teacher-1"}},
		[]ClassInfo{{ID: "class-1", StudentCount: 30}},
		[]CourseInfo{{ID: "art", AvoidFirstLastPeriod: true}},
		nil,
	)
	eval, _ := newEvaluator(&rules, snap)
	v := &Variable{ID: 1, ClassID: "class-1", CourseID: "art", TeacherID: "teacher-1", BlockSize: 1}

	first := eval.softPenalty(v, TimeSlot{Day: 1, Period: 1}, "")
	last := eval.softPenalty(v, TimeSlot{Day: 1, Period: rules.Time.PeriodsPerDay}, "")
	middle := eval.softPenalty(v, TimeSlot{Day: 1, Period: 3}, "")
	assert.Greater(t, first, middle)
	assert.Greater(t, last, middle)
}

func TestSoftPenaltyPreferredSlots(t *testing.T) {
	rules := DefaultRules()
	eval, _ := newEvaluator(&rules, testSnapshot())
	v := &Variable{
		ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1,
		Preferred: []TimeSlot{{Day: 1, Period: 2}},
		Avoid:     []TimeSlot{{Day: 5, Period: 1}},
	}

	preferred := eval.softPenalty(v, TimeSlot{Day: 1, Period: 2}, "room-1")
	other := eval.softPenalty(v, TimeSlot{Day: 2, Period: 2}, "room-1")
	avoided := eval.softPenalty(v, TimeSlot{Day: 5, Period: 1}, "room-1")
	assert.Less(t, preferred, other)
	assert.Greater(t, avoided, other)
}

func TestSoftPenaltyTeacherDailyLoad(t *testing.T) {
	rules := DefaultRules()
	rules.Teacher.MaxDailyHours = 2
	rules.Teacher.MaxContinuousHours = 0
	rules.Teacher.MinRestBetweenCourses = 0
	eval, state := newEvaluator(&rules, testSnapshot())

	for p := 1; p <= 2; p++ {
		state.Place(&Variable{ID: p, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}, TimeSlot{Day: 1, Period: p}, "")
	}
	v := &Variable{ID: 9, ClassID: "class-2", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}

	overloadedDay := eval.softPenalty(v, TimeSlot{Day: 1, Period: 5}, "")
	freshDay := eval.softPenalty(v, TimeSlot{Day: 2, Period: 5}, "")
	assert.Greater(t, overloadedDay, freshDay)
}

func TestSoftPenaltyCoreDailyOccurrences(t *testing.T) {
	rules := DefaultRules()
	rules.CoreSubjects.MaxDailyOccurrences = 1
	eval, state := newEvaluator(&rules, testSnapshot())

	placed := &Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1, Tier: TierCore}
	state.Place(placed, TimeSlot{Day: 1, Period: 1}, "")

	v := &Variable{ID: 2, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-2", BlockSize: 1, Tier: TierCore}
	sameDay := eval.softPenalty(v, TimeSlot{Day: 1, Period: 3}, "")
	otherDay := eval.softPenalty(v, TimeSlot{Day: 2, Period: 3}, "")
	assert.Greater(t, sameDay, otherDay)
}

func TestSoftPenaltyRotation(t *testing.T) {
	rules := DefaultRules()
	rules.Rotation.EnableRotation = true
	rules.Rotation.MinIntervalBetweenClasses = 2
	eval, state := newEvaluator(&rules, testSnapshot())

	state.Place(&Variable{ID: 1, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}, TimeSlot{Day: 1, Period: 1}, "")

	repeat := &Variable{ID: 2, ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", BlockSize: 1}
	fresh := &Variable{ID: 3, ClassID: "class-1", CourseID: "pe", TeacherID: "teacher-2", BlockSize: 1}
	assert.Greater(t,
		eval.softPenalty(repeat, TimeSlot{Day: 1, Period: 3}, ""),
		eval.softPenalty(fresh, TimeSlot{Day: 1, Period: 3}, "room-2"))
}
