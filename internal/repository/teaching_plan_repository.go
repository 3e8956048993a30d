package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TeachingPlanRepository reads teaching plans and their course assignments.
type TeachingPlanRepository struct {
	db *sqlx.DB
}

// NewTeachingPlanRepository constructs a TeachingPlanRepository.
func NewTeachingPlanRepository(db *sqlx.DB) *TeachingPlanRepository {
	return &TeachingPlanRepository{db: db}
}

// ListApprovedAssignments returns the course assignments of approved plans
// for the given classes in one term, ordered stably for deterministic runs.
func (r *TeachingPlanRepository) ListApprovedAssignments(ctx context.Context, academicYear string, semester int, classIDs []string) ([]models.CourseAssignment, error) {
	const query = `
SELECT ca.id, ca.plan_id, tp.class_id, ca.course_id, ca.teacher_id, ca.weekly_hours,
       ca.requires_continuous, ca.continuous_hours, ca.preferred_slots, ca.avoid_slots,
       ca.fixed_day_of_week, ca.fixed_period, ca.fixed_room_id,
       ca.week_type, ca.start_week, ca.end_week, ca.created_at
FROM course_assignments ca
JOIN teaching_plans tp ON tp.id = ca.plan_id
WHERE tp.academic_year = $1 AND tp.semester = $2 AND tp.status = $3 AND tp.class_id = ANY($4)
ORDER BY tp.class_id ASC, ca.course_id ASC, ca.id ASC`

	var assignments []models.CourseAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, academicYear, semester, models.TeachingPlanStatusApproved, pq.Array(classIDs)); err != nil {
		return nil, fmt.Errorf("list approved course assignments: %w", err)
	}
	return assignments, nil
}

// FindPlan fetches a teaching plan by ID.
func (r *TeachingPlanRepository) FindPlan(ctx context.Context, id string) (*models.TeachingPlan, error) {
	const query = `SELECT id, academic_year, semester, class_id, status, created_at, updated_at FROM teaching_plans WHERE id = $1`
	var plan models.TeachingPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}
