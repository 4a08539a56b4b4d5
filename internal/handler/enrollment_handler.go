package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/navicf-api/internal/models"
	"github.com/noah-isme/navicf-api/internal/service"
	"github.com/noah-isme/navicf-api/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	Create(ctx context.Context, req service.CreateEnrollmentRequest) (*models.Enrollment, error)
	Delete(ctx context.Context, id string) error
	LookupPending(ctx context.Context, dni string) (*models.PendingLookup, error)
	EnrollmentsWithPending(ctx context.Context, dni string, page int) ([]models.EnrollmentDetail, *models.Pagination, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Description With dni, lists the enrollments of that student when it still has pending certificates.
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param search query string false "DNI, name or lastname (4+ characters)"
// @Param course_id query string false "Course filter"
// @Param dni query string false "Student DNI"
// @Param page query int false "Page"
// @Param seq query string false "Client sequence echoed in meta.seq"
// @Success 200 {object} response.Envelope
// @Router /admin/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var (
		items      []models.EnrollmentDetail
		pagination *models.Pagination
		err        error
	)
	if dni := strings.TrimSpace(c.Query("dni")); dni != "" {
		items, pagination, err = h.enrollments.EnrollmentsWithPending(c.Request.Context(), dni, pageFromQuery(c))
	} else {
		items, pagination, err = h.enrollments.List(c.Request.Context(), enrollmentFilterFromQuery(c))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination, nil)
}

// Create godoc
// @Summary Enroll a student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.CreateEnrollmentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.enrollments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Delete godoc
// @Summary Delete enrollment
// @Tags Enrollments
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /admin/enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Pending godoc
// @Summary Pending certificates of a student
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param dni query string true "Student DNI (8 digits)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments/pending [get]
func (h *EnrollmentHandler) Pending(c *gin.Context) {
	lookup, err := h.enrollments.LookupPending(c.Request.Context(), c.Query("dni"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lookup, nil)
}
