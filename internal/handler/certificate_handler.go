package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/navicf-api/internal/middleware"
	"github.com/noah-isme/navicf-api/internal/models"
	"github.com/noah-isme/navicf-api/internal/service"
	"github.com/noah-isme/navicf-api/pkg/response"
)

type certificateService interface {
	Issue(ctx context.Context, req service.IssueCertificateRequest) (*service.IssuedCertificate, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	LookupCertified(ctx context.Context, dni string) ([]models.CertifiedCourse, bool, error)
	Export(ctx context.Context, format string, filter models.EnrollmentFilter) (*service.ExportFile, error)
}

// CertificateHandler exposes issuance, listing and the public lookup.
type CertificateHandler struct {
	certificates certificateService
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(certificates certificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// Lookup godoc
// @Summary Public certificate lookup
// @Tags Certificates
// @Produce json
// @Param dni query string true "Student DNI (8 digits)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/lookup [get]
func (h *CertificateHandler) Lookup(c *gin.Context) {
	courses, hit, err := h.certificates.LookupCertified(c.Request.Context(), c.Query("dni"))
	middleware.SetCacheHit(c, hit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, middleware.ResponseMeta(c))
}

// List godoc
// @Summary List issued certificates
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param search query string false "DNI, name or lastname (4+ characters)"
// @Param course_id query string false "Course filter"
// @Param page query int false "Page"
// @Param seq query string false "Client sequence echoed in meta.seq"
// @Success 200 {object} response.Envelope
// @Router /admin/certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	items, pagination, err := h.certificates.List(c.Request.Context(), enrollmentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination, nil)
}

// Issue godoc
// @Summary Issue a certificate
// @Description Renders, uploads and records the certificate of a pending enrollment.
// @Tags Certificates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.IssueCertificateRequest true "Certificate form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /admin/certificates [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	var req service.IssueCertificateRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	issued, err := h.certificates.Issue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, issued)
}

// Export godoc
// @Summary Export issued certificates
// @Tags Certificates
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Param search query string false "DNI, name or lastname"
// @Param course_id query string false "Course filter"
// @Success 200 {file} file
// @Router /admin/certificates/export [get]
func (h *CertificateHandler) Export(c *gin.Context) {
	file, err := h.certificates.Export(c.Request.Context(), c.Query("format"), enrollmentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
