package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/navicf-api/internal/models"
	"github.com/noah-isme/navicf-api/internal/repository"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
	"github.com/noah-isme/navicf-api/pkg/validation"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) (bool, error)
	PendingByDNI(ctx context.Context, dni string) ([]models.PendingRow, error)
}

type enrollmentStudentFinder interface {
	FindActiveByDNI(ctx context.Context, dni string) (*models.Student, error)
}

type enrollmentCourseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateEnrollmentRequest enrolls the student identified by DNI in a course.
type CreateEnrollmentRequest struct {
	DNI      string `json:"dni" validate:"required,dni"`
	CourseID string `json:"course_id" validate:"required"`
}

// EnrollmentService handles enrollment use-cases.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  enrollmentStudentFinder
	courses   enrollmentCourseFinder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentFinder, courses enrollmentCourseFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, cache: cache, validator: validate, logger: logger}
}

// List returns one page of enrollments.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	return listEnrollments(ctx, s.repo, filter, "failed to list enrollments")
}

// Create enrolls an active student in an active course once.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	student, err := s.students.FindActiveByDNI(ctx, req.DNI)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "No existe alumno activo con ese DNI")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "El curso no está disponible")
	}

	exists, err := s.repo.Exists(ctx, student.ID, course.ID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "El alumno ya está inscrito en este curso")
	}

	enrollment := &models.Enrollment{
		StudentID:         student.ID,
		CourseID:          course.ID,
		CertificateStatus: models.CertificatePending,
		Active:            true,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create enrollment")
	}
	_ = s.cache.Invalidate(ctx, dashboardCacheKey)
	s.logger.Info("enrollment created", zap.String("enrollment_id", enrollment.ID), zap.String("course_id", course.ID))
	return enrollment, nil
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to delete enrollment")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	_ = s.cache.Invalidate(ctx, dashboardCacheKey)
	return nil
}

// LookupPending returns the student and the courses still waiting for a
// certificate. Malformed DNIs are rejected before touching the database.
func (s *EnrollmentService) LookupPending(ctx context.Context, dni string) (*models.PendingLookup, error) {
	dni = strings.TrimSpace(dni)
	if err := validation.DNI(dni); err != nil {
		return nil, validationError(err)
	}
	rows, err := s.repo.PendingByDNI(ctx, dni)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, err.Error())
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "No se encontró alumno con cursos pendientes")
	}
	lookup := &models.PendingLookup{
		StudentID: rows[0].StudentID,
		DNI:       rows[0].DNI,
		Name:      rows[0].Name,
		Lastname:  rows[0].Lastname,
		Courses:   make([]models.PendingCourse, 0, len(rows)),
	}
	for _, row := range rows {
		lookup.Courses = append(lookup.Courses, row.PendingCourse)
	}
	return lookup, nil
}

// EnrollmentsWithPending lists the enrollments of the student with dni,
// provided the student still has a pending certificate.
func (s *EnrollmentService) EnrollmentsWithPending(ctx context.Context, dni string, page int) ([]models.EnrollmentDetail, *models.Pagination, error) {
	lookup, err := s.LookupPending(ctx, dni)
	if err != nil {
		return nil, nil, err
	}
	return s.List(ctx, models.EnrollmentFilter{StudentID: lookup.StudentID, Page: page})
}

type enrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

func listEnrollments(ctx context.Context, repo enrollmentLister, filter models.EnrollmentFilter, failure string) ([]models.EnrollmentDetail, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.PageSize = repository.DefaultPageSize
	if filter.Page < 1 {
		filter.Page = 1
	}
	if searchTooShort(filter.Search) {
		return []models.EnrollmentDetail{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
	}
	items, total, err := repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, failure)
	}
	if items == nil {
		items = []models.EnrollmentDetail{}
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}
