package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableProvider interface {
	ClassTimetable(ctx context.Context, classID string, q dto.TimetableQuery) (*dto.TimetableResponse, bool, error)
	TeacherTimetable(ctx context.Context, teacherID string, q dto.TimetableQuery) (*dto.TimetableResponse, bool, error)
	ExportClassTimetable(ctx context.Context, classID string, q dto.TimetableQuery, format string) ([]byte, string, error)
}

// TimetableHandler exposes timetable view endpoints.
type TimetableHandler struct {
	service timetableProvider
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// ClassTimetable godoc
// @Summary Weekly timetable for a class
// @Tags Timetables
// @Produce json
// @Param id path string true "Class ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester (1 or 2)"
// @Success 200 {object} response.Envelope
// @Router /timetables/classes/{id} [get]
func (h *TimetableHandler) ClassTimetable(c *gin.Context) {
	var q dto.TimetableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable query"))
		return
	}
	timetable, cached, err := h.service.ClassTimetable(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, timetable, nil, middleware.ExtractMeta(c))
}

// TeacherTimetable godoc
// @Summary Weekly timetable for a teacher
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester (1 or 2)"
// @Success 200 {object} response.Envelope
// @Router /timetables/teachers/{id} [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	var q dto.TimetableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable query"))
		return
	}
	timetable, cached, err := h.service.TeacherTimetable(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, timetable, nil, middleware.ExtractMeta(c))
}

// ExportClassTimetable godoc
// @Summary Export a class timetable
// @Description Renders the class timetable as CSV (default) or PDF.
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Class ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester (1 or 2)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/classes/{id}/export [get]
func (h *TimetableHandler) ExportClassTimetable(c *gin.Context) {
	var q dto.TimetableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable query"))
		return
	}
	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.service.ExportClassTimetable(c.Request.Context(), c.Param("id"), q, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	ext := "csv"
	if format == "pdf" {
		ext = "pdf"
	}
	filename := fmt.Sprintf("timetable-%s-s%d.%s", c.Param("id"), q.Semester, ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
