package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SchedulingRulesRepository reads stored scheduling rule sets.
type SchedulingRulesRepository struct {
	db *sqlx.DB
}

// NewSchedulingRulesRepository constructs a SchedulingRulesRepository.
func NewSchedulingRulesRepository(db *sqlx.DB) *SchedulingRulesRepository {
	return &SchedulingRulesRepository{db: db}
}

const rulesColumns = "id, name, description, payload, is_default, created_at, updated_at"

// List returns all stored rule sets ordered by name.
func (r *SchedulingRulesRepository) List(ctx context.Context) ([]models.SchedulingRules, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduling_rules ORDER BY name ASC", rulesColumns)
	var sets []models.SchedulingRules
	if err := r.db.SelectContext(ctx, &sets, query); err != nil {
		return nil, fmt.Errorf("list scheduling rules: %w", err)
	}
	return sets, nil
}

// FindByID fetches a rule set by ID.
func (r *SchedulingRulesRepository) FindByID(ctx context.Context, id string) (*models.SchedulingRules, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduling_rules WHERE id = $1", rulesColumns)
	var set models.SchedulingRules
	if err := r.db.GetContext(ctx, &set, query, id); err != nil {
		return nil, err
	}
	return &set, nil
}

// FindDefault fetches the rule set flagged as default.
func (r *SchedulingRulesRepository) FindDefault(ctx context.Context) (*models.SchedulingRules, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduling_rules WHERE is_default = TRUE ORDER BY updated_at DESC LIMIT 1", rulesColumns)
	var set models.SchedulingRules
	if err := r.db.GetContext(ctx, &set, query); err != nil {
		return nil, err
	}
	return &set, nil
}
