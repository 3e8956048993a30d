package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ScheduleRepository persists and reads finalized schedule records.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const scheduleColumns = "id, academic_year, semester, class_id, course_id, teacher_id, room_id, day_of_week, period, week_type, start_week, end_week, status, created_at, updated_at"

// BulkCreateTx inserts schedule records inside the caller's transaction.
func (r *ScheduleRepository) BulkCreateTx(ctx context.Context, exec sqlx.ExtContext, schedules []models.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO schedules (id, academic_year, semester, class_id, course_id, teacher_id, room_id, day_of_week, period, week_type, start_week, end_week, status, created_at, updated_at)
VALUES (:id, :academic_year, :semester, :class_id, :course_id, :teacher_id, :room_id, :day_of_week, :period, :week_type, :start_week, :end_week, :status, :created_at, :updated_at)`

	for i := range schedules {
		record := &schedules[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.Status == "" {
			record.Status = models.ScheduleStatusActive
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, record); err != nil {
			return fmt.Errorf("insert schedule record: %w", err)
		}
	}
	return nil
}

// DeactivateTx marks the active records of the given classes in one term as
// inactive, inside the caller's transaction.
func (r *ScheduleRepository) DeactivateTx(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int, classIDs []string) error {
	if len(classIDs) == 0 {
		return nil
	}
	target := r.exec(exec)
	const query = `
UPDATE schedules SET status = $1, updated_at = NOW()
WHERE academic_year = $2 AND semester = $3 AND status = $4 AND class_id = ANY($5)`
	if _, err := target.ExecContext(ctx, query, models.ScheduleStatusInactive, academicYear, semester, models.ScheduleStatusActive, pq.Array(classIDs)); err != nil {
		return fmt.Errorf("deactivate schedules: %w", err)
	}
	return nil
}

// ListActive returns active schedule records matching the filter.
func (r *ScheduleRepository) ListActive(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error) {
	base := "FROM schedules WHERE status = $1 AND academic_year = $2 AND semester = $3"
	args := []interface{}{models.ScheduleStatusActive, filter.AcademicYear, filter.Semester}

	var conditions []string
	if len(filter.ClassIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("class_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ClassIDs))
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY class_id ASC, day_of_week ASC, period ASC", scheduleColumns, base)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return schedules, nil
}

const scheduleDetailSelect = `
SELECT s.id, s.academic_year, s.semester, s.class_id, s.course_id, s.teacher_id, s.room_id,
       s.day_of_week, s.period, s.week_type, s.start_week, s.end_week, s.status, s.created_at, s.updated_at,
       cl.name AS class_name, co.name AS course_name, te.full_name AS teacher_name, ro.name AS room_name
FROM schedules s
JOIN classes cl ON cl.id = s.class_id
JOIN courses co ON co.id = s.course_id
JOIN teachers te ON te.id = s.teacher_id
LEFT JOIN rooms ro ON ro.id = s.room_id`

// ListDetailByClass returns a class's active records with display names.
func (r *ScheduleRepository) ListDetailByClass(ctx context.Context, academicYear string, semester int, classID string) ([]models.ScheduleDetail, error) {
	query := scheduleDetailSelect + `
WHERE s.status = $1 AND s.academic_year = $2 AND s.semester = $3 AND s.class_id = $4
ORDER BY s.day_of_week ASC, s.period ASC`
	var details []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &details, query, models.ScheduleStatusActive, academicYear, semester, classID); err != nil {
		return nil, fmt.Errorf("list class schedule detail: %w", err)
	}
	return details, nil
}

// ListDetailByTeacher returns a teacher's active records with display names.
func (r *ScheduleRepository) ListDetailByTeacher(ctx context.Context, academicYear string, semester int, teacherID string) ([]models.ScheduleDetail, error) {
	query := scheduleDetailSelect + `
WHERE s.status = $1 AND s.academic_year = $2 AND s.semester = $3 AND s.teacher_id = $4
ORDER BY s.day_of_week ASC, s.period ASC`
	var details []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &details, query, models.ScheduleStatusActive, academicYear, semester, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher schedule detail: %w", err)
	}
	return details, nil
}
