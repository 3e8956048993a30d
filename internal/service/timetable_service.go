package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

type timetableScheduleReader interface {
	ListDetailByClass(ctx context.Context, academicYear string, semester int, classID string) ([]models.ScheduleDetail, error)
	ListDetailByTeacher(ctx context.Context, academicYear string, semester int, teacherID string) ([]models.ScheduleDetail, error)
}

type timetableClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type timetableTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type tabularExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfExporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TimetableService serves weekly timetable views per class or teacher, with
// Redis-backed caching and CSV/PDF export.
type TimetableService struct {
	schedules timetableScheduleReader
	classes   timetableClassReader
	teachers  timetableTeacherReader
	cache     *CacheService
	csv       tabularExporter
	pdf       pdfExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService wires timetable dependencies. Cache may be nil.
func NewTimetableService(
	schedules timetableScheduleReader,
	classes timetableClassReader,
	teachers timetableTeacherReader,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		schedules: schedules,
		classes:   classes,
		teachers:  teachers,
		cache:     cache,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// ClassTimetable returns the weekly grid of one class. The boolean indicates
// whether data originated from cache.
func (s *TimetableService) ClassTimetable(ctx context.Context, classID string, q dto.TimetableQuery) (*dto.TimetableResponse, bool, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}

	cacheKey := timetableCacheKey(q.AcademicYear, q.Semester, "class", classID)
	var cached dto.TimetableResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	records, err := s.schedules.ListDetailByClass(ctx, q.AcademicYear, q.Semester, classID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class timetable")
	}

	resp := &dto.TimetableResponse{
		AcademicYear: q.AcademicYear,
		Semester:     q.Semester,
		ClassID:      classID,
		Cells:        toCells(records),
	}
	if err := s.cache.Set(ctx, cacheKey, resp, 0); err != nil {
		s.logger.Warn("timetable cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return resp, false, nil
}

// TeacherTimetable returns the weekly grid of one teacher across classes.
func (s *TimetableService) TeacherTimetable(ctx context.Context, teacherID string, q dto.TimetableQuery) (*dto.TimetableResponse, bool, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}

	cacheKey := timetableCacheKey(q.AcademicYear, q.Semester, "teacher", teacherID)
	var cached dto.TimetableResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	records, err := s.schedules.ListDetailByTeacher(ctx, q.AcademicYear, q.Semester, teacherID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher timetable")
	}

	resp := &dto.TimetableResponse{
		AcademicYear: q.AcademicYear,
		Semester:     q.Semester,
		TeacherID:    teacherID,
		Cells:        toCells(records),
	}
	if err := s.cache.Set(ctx, cacheKey, resp, 0); err != nil {
		s.logger.Warn("timetable cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return resp, false, nil
}

// ExportClassTimetable renders a class timetable as CSV or PDF bytes.
func (s *TimetableService) ExportClassTimetable(ctx context.Context, classID string, q dto.TimetableQuery, format string) ([]byte, string, error) {
	timetable, _, err := s.ClassTimetable(ctx, classID, q)
	if err != nil {
		return nil, "", err
	}

	dataset := timetableDataset(timetable.Cells)
	switch format {
	case "csv", "":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", nil
	case "pdf":
		title := fmt.Sprintf("Timetable %s semester %d", q.AcademicYear, q.Semester)
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// InvalidateTerm drops every cached timetable view of one term. Called after
// a scheduling run replaces the term's active schedule.
func (s *TimetableService) InvalidateTerm(ctx context.Context, academicYear string, semester int) {
	pattern := fmt.Sprintf("timetable:%s:%d:*", academicYear, semester)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

func timetableCacheKey(academicYear string, semester int, kind, id string) string {
	return fmt.Sprintf("timetable:%s:%d:%s:%s", academicYear, semester, kind, id)
}

func toCells(records []models.ScheduleDetail) []dto.TimetableCell {
	cells := make([]dto.TimetableCell, 0, len(records))
	for _, rec := range records {
		cell := dto.TimetableCell{
			DayOfWeek:   rec.DayOfWeek,
			Period:      rec.Period,
			ClassID:     rec.ClassID,
			ClassName:   rec.ClassName,
			CourseID:    rec.CourseID,
			CourseName:  rec.CourseName,
			TeacherID:   rec.TeacherID,
			TeacherName: rec.TeacherName,
			WeekType:    rec.WeekType,
		}
		if rec.RoomID != nil {
			cell.RoomID = *rec.RoomID
		}
		if rec.RoomName != nil {
			cell.RoomName = *rec.RoomName
		}
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].DayOfWeek != cells[j].DayOfWeek {
			return cells[i].DayOfWeek < cells[j].DayOfWeek
		}
		return cells[i].Period < cells[j].Period
	})
	return cells
}

var dayNames = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
	6: "Saturday",
	7: "Sunday",
}

func timetableDataset(cells []dto.TimetableCell) export.Dataset {
	headers := []string{"Day", "Period", "Course", "Teacher", "Room"}
	rows := make([]map[string]string, 0, len(cells))
	for _, cell := range cells {
		day := dayNames[cell.DayOfWeek]
		if day == "" {
			day = strconv.Itoa(cell.DayOfWeek)
		}
		course := cell.CourseName
		if course == "" {
			course = cell.CourseID
		}
		teacher := cell.TeacherName
		if teacher == "" {
			teacher = cell.TeacherID
		}
		rows = append(rows, map[string]string{
			"Day":     day,
			"Period":  strconv.Itoa(cell.Period),
			"Course":  course,
			"Teacher": teacher,
			"Room":    cell.RoomName,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
