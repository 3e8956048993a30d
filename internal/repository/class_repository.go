package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ClassRepository reads class records for scheduling and timetable views.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = "id, name, grade, student_count, homeroom_teacher_id, active, created_at, updated_at"

// ListActive returns all active classes ordered by grade and name.
func (r *ClassRepository) ListActive(ctx context.Context) ([]models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE active = TRUE ORDER BY grade ASC, name ASC", classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list active classes: %w", err)
	}
	return classes, nil
}

// ListByIDs returns the classes with the given ids.
func (r *ClassRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM classes WHERE id = ANY($1)", classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list classes by ids: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE id = $1", classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}
