package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type schedulingRunner interface {
	Execute(ctx context.Context, req dto.ExecuteSchedulingRequest) (*dto.SchedulingRunResponse, error)
	GetRun(ctx context.Context, id string) (*dto.SchedulingRunResponse, error)
	CancelRun(ctx context.Context, id string) (*dto.SchedulingRunResponse, error)
}

// SchedulingHandler exposes scheduling run endpoints.
type SchedulingHandler struct {
	service schedulingRunner
}

// NewSchedulingHandler constructs the handler.
func NewSchedulingHandler(svc *service.SchedulingService) *SchedulingHandler {
	return &SchedulingHandler{service: svc}
}

// Execute godoc
// @Summary Start a scheduling run
// @Description Submits a timetable generation run for the given classes and term; an empty class list schedules every active class. The run executes asynchronously; poll the returned run id for progress and result.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.ExecuteSchedulingRequest true "Scheduling request"
// @Success 202 {object} response.Envelope
// @Router /scheduling/runs [post]
func (h *SchedulingHandler) Execute(c *gin.Context) {
	var req dto.ExecuteSchedulingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scheduling payload"))
		return
	}
	run, err := h.service.Execute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, run, nil)
}

// GetRun godoc
// @Summary Scheduling run status
// @Tags Scheduling
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /scheduling/runs/{id} [get]
func (h *SchedulingHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// CancelRun godoc
// @Summary Cancel a scheduling run
// @Description Aborts a pending or running scheduling run. The run finishes with its best partial result.
// @Tags Scheduling
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /scheduling/runs/{id}/cancel [post]
func (h *SchedulingHandler) CancelRun(c *gin.Context) {
	run, err := h.service.CancelRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}
