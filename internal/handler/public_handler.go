package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/navicf-api/internal/models"
	"github.com/noah-isme/navicf-api/pkg/config"
)

//go:embed templates/home.html
var homeFS embed.FS

var homeTemplate = template.Must(template.ParseFS(homeFS, "templates/home.html"))

type activeCourseLister interface {
	ListActive(ctx context.Context) ([]models.Course, error)
}

type homePage struct {
	Site       config.SiteConfig
	Courses    []models.Course
	LookupPath string
	Year       int
}

// PublicHandler renders the marketing home page.
type PublicHandler struct {
	courses    activeCourseLister
	site       config.SiteConfig
	lookupPath string
	logger     *zap.Logger
}

// NewPublicHandler constructs PublicHandler. lookupPath is where the DNI form submits.
func NewPublicHandler(courses activeCourseLister, site config.SiteConfig, lookupPath string, logger *zap.Logger) *PublicHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicHandler{courses: courses, site: site, lookupPath: lookupPath, logger: logger}
}

// Home renders the landing page. A catalogue failure still renders the page
// without courses.
func (h *PublicHandler) Home(c *gin.Context) {
	courses, err := h.courses.ListActive(c.Request.Context())
	if err != nil {
		h.logger.Warn("home page courses unavailable", zap.Error(err))
		courses = nil
	}

	var buf bytes.Buffer
	page := homePage{Site: h.site, Courses: courses, LookupPath: h.lookupPath, Year: time.Now().Year()}
	if err := homeTemplate.Execute(&buf, page); err != nil {
		h.logger.Error("render home page", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
