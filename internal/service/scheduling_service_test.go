package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type teacherReaderStub struct {
	teachers []models.Teacher
	err      error
}

func (s teacherReaderStub) ListActive(ctx context.Context) ([]models.Teacher, error) {
	return s.teachers, s.err
}

type classReaderStub struct {
	classes []models.Class
	err     error
}

func (s classReaderStub) ListActive(ctx context.Context) ([]models.Class, error) {
	return s.classes, s.err
}

func (s classReaderStub) ListByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	return s.classes, s.err
}

type courseReaderStub struct {
	courses []models.Course
	err     error
}

func (s courseReaderStub) ListActive(ctx context.Context) ([]models.Course, error) {
	return s.courses, s.err
}

type roomReaderStub struct {
	rooms []models.Room
	err   error
}

func (s roomReaderStub) ListActive(ctx context.Context) ([]models.Room, error) {
	return s.rooms, s.err
}

type planReaderStub struct {
	assignments []models.CourseAssignment
	err         error
}

func (s planReaderStub) ListApprovedAssignments(ctx context.Context, academicYear string, semester int, classIDs []string) ([]models.CourseAssignment, error) {
	return s.assignments, s.err
}

type rulesReaderStub struct {
	byID       map[string]*models.SchedulingRules
	defaultSet *models.SchedulingRules
}

func (s rulesReaderStub) FindByID(ctx context.Context, id string) (*models.SchedulingRules, error) {
	if record, ok := s.byID[id]; ok {
		return record, nil
	}
	return nil, sql.ErrNoRows
}

func (s rulesReaderStub) FindDefault(ctx context.Context) (*models.SchedulingRules, error) {
	if s.defaultSet == nil {
		return nil, sql.ErrNoRows
	}
	return s.defaultSet, nil
}

type scheduleStoreStub struct {
	deactivated  int
	deactivateCl []string
	inserted     []models.Schedule
	active       []models.Schedule
}

func (s *scheduleStoreStub) BulkCreateTx(ctx context.Context, exec sqlx.ExtContext, schedules []models.Schedule) error {
	s.inserted = append(s.inserted, schedules...)
	return nil
}

func (s *scheduleStoreStub) DeactivateTx(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int, classIDs []string) error {
	s.deactivated++
	s.deactivateCl = classIDs
	return nil
}

func (s *scheduleStoreStub) ListActive(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error) {
	return s.active, nil
}

type invalidatorStub struct {
	terms []string
}

func (s *invalidatorStub) InvalidateTerm(ctx context.Context, academicYear string, semester int) {
	s.terms = append(s.terms, academicYear)
}

func newTxProviderForTest(t *testing.T) *sqlx.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectBegin()
	mock.ExpectCommit()
	return sqlx.NewDb(db, "sqlmock")
}

func schedulingFixture() (teacherReaderStub, classReaderStub, courseReaderStub, roomReaderStub, planReaderStub) {
	teachers := teacherReaderStub{teachers: []models.Teacher{
		{ID: "teacher-1", FullName: "Teacher One", MaxWeeklyHours: 20},
	}}
	classes := classReaderStub{classes: []models.Class{
		{ID: "class-1", Name: "X-A", Grade: "10", StudentCount: 30},
	}}
	courses := courseReaderStub{courses: []models.Course{
		{ID: "math", Name: "Mathematics", Subject: "math", WeeklyHours: 2},
	}}
	rooms := roomReaderStub{rooms: []models.Room{
		{ID: "room-1", Name: "Room 1", Type: "standard", Capacity: 40},
	}}
	plans := planReaderStub{assignments: []models.CourseAssignment{
		{
			ID:          "assign-1",
			ClassID:     "class-1",
			CourseID:    "math",
			TeacherID:   "teacher-1",
			WeeklyHours: 2,
			StartWeek:   1,
			EndWeek:     18,
		},
	}}
	return teachers, classes, courses, rooms, plans
}

func newSchedulingServiceForTest(t *testing.T, plans planReaderStub, rules rulesReaderStub) (*SchedulingService, *scheduleStoreStub, *invalidatorStub) {
	t.Helper()
	teachers, classes, courses, rooms, _ := schedulingFixture()
	store := &scheduleStoreStub{}
	invalidator := &invalidatorStub{}
	svc := NewSchedulingService(
		teachers, classes, courses, rooms, plans, rules,
		store, newTxProviderForTest(t), nil, invalidator, nil, nil, nil,
		SchedulingServiceConfig{Synchronous: true, RunTTL: time.Hour},
	)
	return svc, store, invalidator
}

func TestSchedulingServiceExecuteCompletesRun(t *testing.T) {
	_, _, _, _, plans := schedulingFixture()
	svc, store, invalidator := newSchedulingServiceForTest(t, plans, rulesReaderStub{})

	resp, err := svc.Execute(context.Background(), dto.ExecuteSchedulingRequest{
		AcademicYear: "2026/2027",
		Semester:     1,
		ClassIDs:     []string{"class-1"},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, string(RunStatusCompleted), resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 2, resp.Result.Statistics.TotalVariables)
	assert.Equal(t, 2, resp.Result.Statistics.AssignedVariables)
	assert.Zero(t, resp.Result.Statistics.UnassignedVariables)
	require.NotNil(t, resp.FinishedAt)

	assert.Equal(t, 1, store.deactivated)
	assert.Equal(t, []string{"class-1"}, store.deactivateCl)
	require.Len(t, store.inserted, 2)
	for _, rec := range store.inserted {
		assert.Equal(t, "2026/2027", rec.AcademicYear)
		assert.Equal(t, 1, rec.Semester)
		assert.Equal(t, models.ScheduleStatusActive, rec.Status)
	}
	assert.Equal(t, []string{"2026/2027"}, invalidator.terms)
}

func TestSchedulingServiceExecuteEmptyClassListSchedulesAllClasses(t *testing.T) {
	teachers, _, courses, rooms, _ := schedulingFixture()
	classes := classReaderStub{classes: []models.Class{
		{ID: "class-1", Name: "X-A", Grade: "10", StudentCount: 30},
		{ID: "class-2", Name: "X-B", Grade: "10", StudentCount: 28},
	}}
	plans := planReaderStub{assignments: []models.CourseAssignment{
		{ID: "assign-1", ClassID: "class-1", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 1, StartWeek: 1, EndWeek: 18},
		{ID: "assign-2", ClassID: "class-2", CourseID: "math", TeacherID: "teacher-1", WeeklyHours: 1, StartWeek: 1, EndWeek: 18},
	}}
	store := &scheduleStoreStub{}
	svc := NewSchedulingService(
		teachers, classes, courses, rooms, plans, rulesReaderStub{},
		store, newTxProviderForTest(t), nil, nil, nil, nil, nil,
		SchedulingServiceConfig{Synchronous: true, RunTTL: time.Hour},
	)

	resp, err := svc.Execute(context.Background(), dto.ExecuteSchedulingRequest{
		AcademicYear: "2026/2027",
		Semester:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, string(RunStatusCompleted), resp.Status)
	assert.ElementsMatch(t, []string{"class-1", "class-2"}, resp.ClassIDs)
	assert.ElementsMatch(t, []string{"class-1", "class-2"}, store.deactivateCl)
	require.Len(t, store.inserted, 2)
}

func TestSchedulingServiceExecuteEmptyClassListNoActiveClasses(t *testing.T) {
	teachers, _, courses, rooms, plans := schedulingFixture()
	svc := NewSchedulingService(
		teachers, classReaderStub{}, courses, rooms, plans, rulesReaderStub{},
		&scheduleStoreStub{}, newTxProviderForTest(t), nil, nil, nil, nil, nil,
		SchedulingServiceConfig{Synchronous: true, RunTTL: time.Hour},
	)

	_, err := svc.Execute(context.Background(), dto.ExecuteSchedulingRequest{
		AcademicYear: "2026/2027",
		Semester:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSchedulingServiceExecuteRejectsInvalidRequest(t *testing.T) {
	_, _, _, _, plans := schedulingFixture()
	svc, _, _ := newSchedulingServiceForTest(t, plans, rulesReaderStub{})

	_, err := svc.Execute(context.Background(), dto.ExecuteSchedulingRequest{
		Semester: 1,
		ClassIDs: []string{"class-1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSchedulingServiceExecuteUnknownRules(t *testing.T) {
	_, _, _, _, plans := schedulingFixture()
	svc, _, _ := newSchedulingServiceForTest(t, plans, rulesReaderStub{})

	_, err := svc.Execute(context.Background(), dto.ExecuteSchedulingRequest{
		AcademicYear: "2026/2027",
		Semester:     1,
		ClassIDs:     []string{"class-1"},
		RulesID:      "missing",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSchedulingServiceExecuteStoredRulesOverlayDefaults(t *testing.T) {
	_, _, _, _, plans := schedulingFixture()
	rules := rulesReaderStub{byID: map[string]*models.SchedulingRules{
		"compact": {
			ID:      "compact",
			Name:    "compact week",
			Payload: types.JSONText(`{"time":{"daysPerWeek":3,"periodsPerDay":4,"lunchAfterPeriod":2}}`),
		},
	}}
	svc, store, _ := newSchedulingServiceForTest(t, plans, rules)

	resp, err := svc.Execute(context.Background(), dto.ExecuteSchedulingRequest{
		AcademicYear: "2026/2027",
		Semester:     1,
		ClassIDs:     []string{"class-1"},
		RulesID:      "compact",
	})
	require.NoError(t, err)
	assert.Equal(t, string(RunStatusCompleted), resp.Status)
	for _, rec := range store.inserted {
		assert.LessOrEqual(t, rec.DayOfWeek, 3)
		assert.LessOrEqual(t, rec.Period, 4)
	}
}

func TestSchedulingServiceExecuteFailsWithoutPlans(t *testing.T) {
	svc, store, invalidator := newSchedulingServiceForTest(t, planReaderStub{}, rulesReaderStub{})

	resp, err := svc.Execute(context.Background(), dto.ExecuteSchedulingRequest{
		AcademicYear: "2026/2027",
		Semester:     1,
		ClassIDs:     []string{"class-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, string(RunStatusFailed), resp.Status)
	assert.Contains(t, resp.Error, "no approved teaching plans")
	assert.Zero(t, store.deactivated)
	assert.Empty(t, invalidator.terms)
}

func TestSchedulingServiceGetRunUnknown(t *testing.T) {
	_, _, _, _, plans := schedulingFixture()
	svc, _, _ := newSchedulingServiceForTest(t, plans, rulesReaderStub{})

	_, err := svc.GetRun(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSchedulingServiceCancelTerminalRun(t *testing.T) {
	_, _, _, _, plans := schedulingFixture()
	svc, _, _ := newSchedulingServiceForTest(t, plans, rulesReaderStub{})

	resp, err := svc.Execute(context.Background(), dto.ExecuteSchedulingRequest{
		AcademicYear: "2026/2027",
		Semester:     1,
		ClassIDs:     []string{"class-1"},
	})
	require.NoError(t, err)
	require.Equal(t, string(RunStatusCompleted), resp.Status)

	_, err = svc.CancelRun(context.Background(), resp.RunID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRunNotCancellable.Code, appErrors.FromError(err).Code)
}

func TestSchedulingServiceExecutePreservesActiveSchedule(t *testing.T) {
	_, _, _, _, plans := schedulingFixture()
	teachers, classes, courses, rooms, _ := schedulingFixture()
	roomID := "room-1"
	store := &scheduleStoreStub{active: []models.Schedule{
		{
			ID:           "existing",
			AcademicYear: "2026/2027",
			Semester:     1,
			ClassID:      "class-1",
			CourseID:     "math",
			TeacherID:    "teacher-1",
			RoomID:       &roomID,
			DayOfWeek:    1,
			Period:       1,
			StartWeek:    1,
			EndWeek:      18,
			Status:       models.ScheduleStatusActive,
		},
	}}
	svc := NewSchedulingService(
		teachers, classes, courses, rooms, plans, rulesReaderStub{},
		store, newTxProviderForTest(t), nil, nil, nil, nil, nil,
		SchedulingServiceConfig{Synchronous: true, RunTTL: time.Hour},
	)

	resp, err := svc.Execute(context.Background(), dto.ExecuteSchedulingRequest{
		AcademicYear:     "2026/2027",
		Semester:         1,
		ClassIDs:         []string{"class-1"},
		PreserveExisting: true,
	})
	require.NoError(t, err)
	require.Equal(t, string(RunStatusCompleted), resp.Status)

	// The preserved hour counts toward the plan's two weekly hours, so the
	// run places one new hour and re-inserts the kept one.
	require.Len(t, store.inserted, 2)
	var keptSlot bool
	for _, rec := range store.inserted {
		if rec.DayOfWeek == 1 && rec.Period == 1 && rec.RoomID != nil && *rec.RoomID == "room-1" {
			keptSlot = true
		}
	}
	assert.True(t, keptSlot)
}

func TestParseRulesRejectsMalformedPayload(t *testing.T) {
	_, err := parseRules(types.JSONText(`{"time":`))
	require.Error(t, err)
}
