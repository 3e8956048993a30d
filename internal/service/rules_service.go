package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type rulesRepository interface {
	List(ctx context.Context) ([]models.SchedulingRules, error)
	FindByID(ctx context.Context, id string) (*models.SchedulingRules, error)
}

// RulesService exposes stored rule sets with their payloads resolved against
// the defaults.
type RulesService struct {
	repo   rulesRepository
	logger *zap.Logger
}

// NewRulesService constructs a rules service.
func NewRulesService(repo rulesRepository, logger *zap.Logger) *RulesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RulesService{repo: repo, logger: logger}
}

// List returns every stored rule set.
func (s *RulesService) List(ctx context.Context) ([]dto.RulesResponse, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scheduling rules")
	}
	out := make([]dto.RulesResponse, 0, len(records))
	for _, record := range records {
		resp, err := toRulesResponse(record)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

// Get returns one stored rule set by id.
func (s *RulesService) Get(ctx context.Context, id string) (*dto.RulesResponse, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduling rules not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling rules")
	}
	return toRulesResponse(*record)
}

func toRulesResponse(record models.SchedulingRules) (*dto.RulesResponse, error) {
	rules, err := parseRules(record.Payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRules.Code, appErrors.ErrInvalidRules.Status, fmt.Sprintf("malformed payload in rule set %s", record.ID))
	}
	resp := &dto.RulesResponse{
		ID:        record.ID,
		Name:      record.Name,
		IsDefault: record.IsDefault,
		Rules:     rules,
	}
	if record.Description != nil {
		resp.Description = *record.Description
	}
	return resp, nil
}
