package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPlacesContinuousBlockOnSameDay(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Demands: []CourseDemand{
			{ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 2, RequiresContinuous: true, ContinuousHours: 2},
		},
		Rules:    DefaultRules(),
		Snapshot: testSnapshot(),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Empty(t, res.Unassigned)
	require.Len(t, res.Entries, 2)
	first, second := res.Entries[0], res.Entries[1]
	assert.Equal(t, first.DayOfWeek, second.DayOfWeek, "block members share the day")
	assert.Equal(t, first.Period+1, second.Period, "block members sit on adjacent periods")
	assert.Equal(t, 0, res.Statistics.UnassignedVariables)
}

func TestRunCompetingDemandsLeaveOneUnassigned(t *testing.T) {
	rules := DefaultRules()
	rules.Time = TimeRules{DaysPerWeek: 1, PeriodsPerDay: 1}

	res, err := Run(context.Background(), Request{
		Demands: []CourseDemand{
			{ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 1},
			{ClassID: "class-2", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 1},
		},
		Rules:    rules,
		Snapshot: testSnapshot(),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status, "infeasibility is not an error")
	assert.Len(t, res.Entries, 1)
	require.Len(t, res.Unassigned, 1)
	assert.Contains(t, res.Unassigned[0].Reason, "teacher-busy")
	assert.Equal(t, 2, res.Statistics.TotalVariables)
	assert.Equal(t, 1, res.Statistics.AssignedVariables)
	assert.Equal(t, 1, res.Statistics.UnassignedVariables)
}

func TestRunFixedTimeActivityWinsItsSlot(t *testing.T) {
	rules := DefaultRules()
	rules.FixedTime.Courses = []FixedTimeCourse{
		{Name: "flag raising", CourseID: "flag", Slot: TimeSlot{Day: 1, Period: 1}},
	}

	res, err := Run(context.Background(), Request{
		Demands: []CourseDemand{
			{ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 1,
				PreferredSlots: []TimeSlot{{Day: 1, Period: 1}}},
		},
		Rules:    rules,
		Snapshot: testSnapshot(),
	})
	require.NoError(t, err)

	flagEntries := 0
	for _, e := range res.Entries {
		if e.CourseID == "flag" {
			flagEntries++
			assert.Equal(t, 1, e.DayOfWeek)
			assert.Equal(t, 1, e.Period)
		}
		if e.CourseID == "math" && e.ClassID == "class-1" {
			assert.False(t, e.DayOfWeek == 1 && e.Period == 1, "the fixed activity keeps the slot")
		}
	}
	assert.Equal(t, 2, flagEntries, "activity without a class id fans out to every class")
	assert.Empty(t, res.Unassigned)
}

func TestRunPreservedAssignmentBlocksItsSlot(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Demands: []CourseDemand{
			{ClassID: "class-1", CourseID: "pe", TeacherID: "teacher-2", WeeklyHours: 1},
		},
		Preserved: []PreservedAssignment{
			{ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", RoomID: "room-1", Slot: TimeSlot{Day: 2, Period: 3}},
		},
		Rules:    DefaultRules(),
		Snapshot: testSnapshot(),
	})
	require.NoError(t, err)

	var preservedSeen bool
	for _, e := range res.Entries {
		if e.CourseID == "math" {
			preservedSeen = true
			assert.True(t, e.Preserved)
			assert.Equal(t, 2, e.DayOfWeek)
			assert.Equal(t, 3, e.Period)
		}
		if e.CourseID == "pe" {
			assert.False(t, e.DayOfWeek == 2 && e.Period == 3, "preserved record keeps its slot")
		}
	}
	assert.True(t, preservedSeen)
	assert.Empty(t, res.Unassigned)
}

func TestRunIsDeterministic(t *testing.T) {
	req := func() Request {
		rules := DefaultRules()
		rules.CoreSubjects.CoreSubjects = []string{"math"}
		return Request{
			Demands: []CourseDemand{
				{ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 4},
				{ClassID: "class-2", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 4},
				{ClassID: "class-1", CourseID: "pe", TeacherID: "teacher-2", WeeklyHours: 2},
				{ClassID: "class-2", CourseID: "pe", TeacherID: "teacher-2", WeeklyHours: 2},
			},
			Rules:    rules,
			Snapshot: testSnapshot(),
		}
	}

	a, err := Run(context.Background(), req())
	require.NoError(t, err)
	b, err := Run(context.Background(), req())
	require.NoError(t, err)

	assert.Equal(t, a.Entries, b.Entries)
	assert.Equal(t, a.Statistics, b.Statistics)
	assert.Equal(t, a.Unassigned, b.Unassigned)
}

func TestRunCancellationAbortsWithPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, Request{
		Demands: []CourseDemand{
			{ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 3},
			{ClassID: "class-2", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 3},
		},
		Rules:    DefaultRules(),
		Snapshot: testSnapshot(),
	})
	require.NoError(t, err, "cancellation is not an error")

	assert.Equal(t, StatusAborted, res.Status)
	stats := res.Statistics
	assert.Equal(t, stats.TotalVariables, stats.AssignedVariables+stats.UnassignedVariables)
	assert.Len(t, res.Unassigned, stats.UnassignedVariables)
}

func TestRunEmitsProgressStages(t *testing.T) {
	progress := make(chan Progress, 16)
	_, err := Run(context.Background(), Request{
		Demands: []CourseDemand{
			{ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 2},
		},
		Rules:    DefaultRules(),
		Snapshot: testSnapshot(),
		Progress: progress,
	})
	require.NoError(t, err)

	var stages []Progress
	for {
		select {
		case p := <-progress:
			stages = append(stages, p)
			continue
		default:
		}
		break
	}
	require.NotEmpty(t, stages)
	last := stages[len(stages)-1]
	assert.Equal(t, "finalize", last.Stage)
	assert.Equal(t, 100, last.Percent)
}

func TestRunRejectsInvalidRules(t *testing.T) {
	rules := DefaultRules()
	rules.Time.DaysPerWeek = 0

	_, err := Run(context.Background(), Request{Rules: rules, Snapshot: testSnapshot()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daysPerWeek")
}

func TestRunWarningStrategyKeepsCollisionAsWarning(t *testing.T) {
	req := func(strategy FixedConflictStrategy) Request {
		rules := DefaultRules()
		rules.FixedTime.ConflictStrategy = strategy
		return Request{
			Preserved: []PreservedAssignment{
				{ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", Slot: TimeSlot{Day: 1, Period: 1}},
				{ClassID: "class-1", CourseID: "pe", TeacherID: "teacher-2", Slot: TimeSlot{Day: 1, Period: 1}},
			},
			Rules:    rules,
			Snapshot: testSnapshot(),
		}
	}

	warned, err := Run(context.Background(), req(FixedWarning))
	require.NoError(t, err)
	require.Len(t, warned.Conflicts, 1)
	assert.True(t, warned.Conflicts[0].Warning, "allowed fixed-time collision surfaces as a warning")
	assert.Zero(t, warned.Statistics.HardViolations)

	flexible, err := Run(context.Background(), req(FixedFlexible))
	require.NoError(t, err)
	require.Len(t, flexible.Conflicts, 1)
	assert.False(t, flexible.Conflicts[0].Warning)
	assert.Equal(t, 1, flexible.Statistics.HardViolations)
}

func TestRunStrictFixedCollisionFails(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Preserved: []PreservedAssignment{
			{ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", Slot: TimeSlot{Day: 1, Period: 1}},
			{ClassID: "class-1", CourseID: "pe", TeacherID: "teacher-2", Slot: TimeSlot{Day: 1, Period: 1}},
		},
		Rules:    DefaultRules(),
		Snapshot: testSnapshot(),
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "fixed-slot pre-placement")
}
