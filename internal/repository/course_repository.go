package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/navicf-api/internal/models"
)

// CourseRepository reads the course catalogue.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListActive returns active courses ordered by name.
func (r *CourseRepository) ListActive(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, description, image_url, discount, duration_value, duration_unit, rating, status, created_at
        FROM courses WHERE status = true ORDER BY name`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches one course regardless of status.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, description, image_url, discount, duration_value, duration_unit, rating, status, created_at
        FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListModules returns the active modules of a course syllabus.
func (r *CourseRepository) ListModules(ctx context.Context, courseID string) ([]models.CourseModule, error) {
	const query = `SELECT m.id AS module_id, m.name, cm.description
        FROM course_modules cm JOIN modules m ON m.id = cm.module_id
        WHERE cm.course_id = $1 AND m.status = true ORDER BY m.name`
	var modules []models.CourseModule
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list course modules: %w", err)
	}
	return modules, nil
}
