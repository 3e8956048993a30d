package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type scheduleDetailStub struct {
	byClass   map[string][]models.ScheduleDetail
	byTeacher map[string][]models.ScheduleDetail
}

func (s scheduleDetailStub) ListDetailByClass(ctx context.Context, academicYear string, semester int, classID string) ([]models.ScheduleDetail, error) {
	return s.byClass[classID], nil
}

func (s scheduleDetailStub) ListDetailByTeacher(ctx context.Context, academicYear string, semester int, teacherID string) ([]models.ScheduleDetail, error) {
	return s.byTeacher[teacherID], nil
}

type classFinderStub struct {
	classes map[string]*models.Class
}

func (s classFinderStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := s.classes[id]; ok {
		return class, nil
	}
	return nil, sql.ErrNoRows
}

type teacherFinderStub struct {
	teachers map[string]*models.Teacher
}

func (s teacherFinderStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := s.teachers[id]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

func detailRecord(day, period int, course, courseName string) models.ScheduleDetail {
	roomName := "Room 1"
	roomID := "room-1"
	return models.ScheduleDetail{
		Schedule: models.Schedule{
			ClassID:   "class-1",
			CourseID:  course,
			TeacherID: "teacher-1",
			RoomID:    &roomID,
			DayOfWeek: day,
			Period:    period,
			WeekType:  "ALL",
		},
		ClassName:   "X-A",
		CourseName:  courseName,
		TeacherName: "Teacher One",
		RoomName:    &roomName,
	}
}

func newTimetableServiceForTest() *TimetableService {
	schedules := scheduleDetailStub{
		byClass: map[string][]models.ScheduleDetail{
			"class-1": {
				detailRecord(2, 3, "eng", "English"),
				detailRecord(1, 1, "math", "Mathematics"),
				detailRecord(1, 2, "math", "Mathematics"),
			},
		},
		byTeacher: map[string][]models.ScheduleDetail{
			"teacher-1": {
				detailRecord(1, 1, "math", "Mathematics"),
			},
		},
	}
	classes := classFinderStub{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "X-A"},
	}}
	teachers := teacherFinderStub{teachers: map[string]*models.Teacher{
		"teacher-1": {ID: "teacher-1", FullName: "Teacher One"},
	}}
	return NewTimetableService(schedules, classes, teachers, nil, nil, nil)
}

func TestTimetableServiceClassViewSortsCells(t *testing.T) {
	svc := newTimetableServiceForTest()

	resp, cached, err := svc.ClassTimetable(context.Background(), "class-1", dto.TimetableQuery{
		AcademicYear: "2026/2027",
		Semester:     1,
	})
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, resp.Cells, 3)
	assert.Equal(t, 1, resp.Cells[0].DayOfWeek)
	assert.Equal(t, 1, resp.Cells[0].Period)
	assert.Equal(t, 1, resp.Cells[1].DayOfWeek)
	assert.Equal(t, 2, resp.Cells[1].Period)
	assert.Equal(t, 2, resp.Cells[2].DayOfWeek)
	assert.Equal(t, "English", resp.Cells[2].CourseName)
	assert.Equal(t, "Room 1", resp.Cells[0].RoomName)
}

func TestTimetableServiceClassViewUnknownClass(t *testing.T) {
	svc := newTimetableServiceForTest()

	_, _, err := svc.ClassTimetable(context.Background(), "missing", dto.TimetableQuery{
		AcademicYear: "2026/2027",
		Semester:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceRejectsInvalidQuery(t *testing.T) {
	svc := newTimetableServiceForTest()

	_, _, err := svc.ClassTimetable(context.Background(), "class-1", dto.TimetableQuery{Semester: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceTeacherView(t *testing.T) {
	svc := newTimetableServiceForTest()

	resp, _, err := svc.TeacherTimetable(context.Background(), "teacher-1", dto.TimetableQuery{
		AcademicYear: "2026/2027",
		Semester:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", resp.TeacherID)
	require.Len(t, resp.Cells, 1)
	assert.Equal(t, "X-A", resp.Cells[0].ClassName)
}

func TestTimetableServiceExportCSV(t *testing.T) {
	svc := newTimetableServiceForTest()

	data, contentType, err := svc.ExportClassTimetable(context.Background(), "class-1", dto.TimetableQuery{
		AcademicYear: "2026/2027",
		Semester:     1,
	}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(data)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Day,Period,Course,Teacher,Room", strings.TrimSpace(lines[0]))
	assert.Contains(t, body, "Monday,1,Mathematics,Teacher One,Room 1")
	assert.Contains(t, body, "Tuesday,3,English,Teacher One,Room 1")
}

func TestTimetableServiceExportPDF(t *testing.T) {
	svc := newTimetableServiceForTest()

	data, contentType, err := svc.ExportClassTimetable(context.Background(), "class-1", dto.TimetableQuery{
		AcademicYear: "2026/2027",
		Semester:     1,
	}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestTimetableServiceExportUnsupportedFormat(t *testing.T) {
	svc := newTimetableServiceForTest()

	_, _, err := svc.ExportClassTimetable(context.Background(), "class-1", dto.TimetableQuery{
		AcademicYear: "2026/2027",
		Semester:     1,
	}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
