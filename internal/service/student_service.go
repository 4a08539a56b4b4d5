package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/navicf-api/internal/models"
	"github.com/noah-isme/navicf-api/internal/repository"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
	"github.com/noah-isme/navicf-api/pkg/validation"
)

// MinSearchLength is the shortest free-text term sent to the database.
// Shorter terms yield an empty page.
const MinSearchLength = 4

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByDNI(ctx context.Context, dni string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

// StudentRequest is the payload for creating and editing students.
type StudentRequest struct {
	DNI       string  `json:"dni" validate:"required,student_dni"`
	Name      string  `json:"name" validate:"required,person_name"`
	Lastname  string  `json:"lastname" validate:"required,person_name"`
	Email     string  `json:"email" validate:"required,email_simple"`
	Phone     string  `json:"phone" validate:"required,phone_pe"`
	Address   *string `json:"address"`
	BirthDate string  `json:"birth_date"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
	dashboard *CacheService
}

// NewStudentService constructs the student service. cache may be nil; when
// set, dashboard counters are invalidated on writes.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger, cache *CacheService) *StudentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger, dashboard: cache}
}

// List returns one page of active students.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.PageSize = repository.DefaultPageSize
	if filter.Page < 1 {
		filter.Page = 1
	}
	if searchTooShort(filter.Search) {
		return []models.Student{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	birthDate, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueDNI(ctx, req.DNI, ""); err != nil {
		return nil, err
	}
	student := &models.Student{Active: true}
	applyStudentRequest(student, req, birthDate)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create student")
	}
	s.invalidateDashboard(ctx)
	return student, nil
}

// Update overwrites the editable fields of a student. Concurrent edits are
// not detected; the last write wins.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	birthDate, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueDNI(ctx, req.DNI, id); err != nil {
		return nil, err
	}
	applyStudentRequest(student, req, birthDate)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to update student")
	}
	return student, nil
}

// Deactivate hides a student. Rows are never deleted.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to deactivate student")
	}
	s.invalidateDashboard(ctx)
	return nil
}

func (s *StudentService) validate(req StudentRequest) (*time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if strings.TrimSpace(req.BirthDate) == "" {
		return nil, nil
	}
	birthDate, err := validation.ParseDate(req.BirthDate)
	if err != nil {
		return nil, validationError(err)
	}
	return &birthDate, nil
}

func (s *StudentService) ensureUniqueDNI(ctx context.Context, dni, excludeID string) error {
	exists, err := s.repo.ExistsByDNI(ctx, dni, excludeID)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to validate dni")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "Ya existe un alumno registrado con ese DNI")
	}
	return nil
}

func (s *StudentService) invalidateDashboard(ctx context.Context) {
	_ = s.dashboard.Invalidate(ctx, dashboardCacheKey)
}

func applyStudentRequest(student *models.Student, req StudentRequest, birthDate *time.Time) {
	student.DNI = req.DNI
	student.Name = strings.TrimSpace(req.Name)
	student.Lastname = strings.TrimSpace(req.Lastname)
	student.Email = strings.TrimSpace(req.Email)
	student.Phone = req.Phone
	student.Address = req.Address
	student.BirthDate = birthDate
}

func searchTooShort(term string) bool {
	return term != "" && len([]rune(term)) < MinSearchLength
}

// validationError maps a rule or validator failure to VALIDATION_ERROR with
// the user facing message.
func validationError(err error) error {
	return appErrors.WrapAs(err, appErrors.ErrValidation, validation.Message(err))
}
