package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/navicf-api/internal/middleware"
	"github.com/noah-isme/navicf-api/internal/models"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// pageFromQuery reads ?page=, defaulting to 1 on absent or malformed input.
func pageFromQuery(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func enrollmentFilterFromQuery(c *gin.Context) models.EnrollmentFilter {
	return models.EnrollmentFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		CourseID: strings.TrimSpace(c.Query("course_id")),
		Page:     pageFromQuery(c),
	}
}

func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid request body")
	}
	return nil
}
