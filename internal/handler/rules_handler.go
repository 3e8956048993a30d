package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type rulesProvider interface {
	List(ctx context.Context) ([]dto.RulesResponse, error)
	Get(ctx context.Context, id string) (*dto.RulesResponse, error)
}

// RulesHandler exposes stored scheduling rule sets.
type RulesHandler struct {
	service rulesProvider
}

// NewRulesHandler constructs the handler.
func NewRulesHandler(svc *service.RulesService) *RulesHandler {
	return &RulesHandler{service: svc}
}

// List godoc
// @Summary List scheduling rule sets
// @Tags Scheduling
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scheduling/rules [get]
func (h *RulesHandler) List(c *gin.Context) {
	rules, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Get godoc
// @Summary Scheduling rule set detail
// @Tags Scheduling
// @Produce json
// @Param id path string true "Rule set ID"
// @Success 200 {object} response.Envelope
// @Router /scheduling/rules/{id} [get]
func (h *RulesHandler) Get(c *gin.Context) {
	rules, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}
