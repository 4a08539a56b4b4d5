package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/navicf-api/internal/models"
)

// DashboardRepository computes the admin landing page counters.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats counts active students, courses and modules, plus enrollments
// created since monthStart.
func (r *DashboardRepository) Stats(ctx context.Context, monthStart time.Time) (*models.DashboardStats, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students WHERE status = true) AS active_students,
        (SELECT COUNT(*) FROM enrollments WHERE created_at >= $1) AS monthly_enrollments,
        (SELECT COUNT(*) FROM courses WHERE status = true) AS active_courses,
        (SELECT COUNT(*) FROM modules WHERE status = true) AS active_modules`
	var stats models.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query, monthStart); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &stats, nil
}
