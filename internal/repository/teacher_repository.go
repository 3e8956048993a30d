package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TeacherRepository reads teacher records for scheduling and reporting.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherColumns = "id, nip, full_name, email, expertise, max_weekly_hours, unavailable_slots, preferred_slots, active, created_at, updated_at"

// ListActive returns all active teachers, ordered by name.
func (r *TeacherRepository) ListActive(ctx context.Context) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE active = TRUE ORDER BY full_name ASC", teacherColumns)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	return teachers, nil
}

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY full_name ASC LIMIT %d OFFSET %d", teacherColumns, base, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}
