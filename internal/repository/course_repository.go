package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// CourseRepository reads course records for scheduling.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = "id, name, subject, weekly_hours, requires_continuous, continuous_hours, room_types, avoid_first_last_period, active, created_at, updated_at"

// ListActive returns all active courses ordered by name.
func (r *CourseRepository) ListActive(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE active = TRUE ORDER BY name ASC", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}
