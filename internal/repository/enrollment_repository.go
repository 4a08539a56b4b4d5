package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/navicf-api/internal/models"
)

// ErrEnrollmentNotPending is returned when a completion targets an enrollment
// that is missing or no longer pendiente.
var ErrEnrollmentNotPending = errors.New("enrollment is not pending")

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.course_id, e.start_date, e.end_date, e.final_grade, e.certificate_status,
        e.pdf_url, e.status, e.created_at, e.updated_at,
        s.dni AS student_dni, s.name AS student_name, s.lastname AS student_lastname,
        c.name AS course_name, c.duration_value, c.duration_unit`

const enrollmentJoins = "FROM enrollments e JOIN students s ON s.id = e.student_id JOIN courses c ON c.id = e.course_id"

// EnrollmentRepository persists enrollments and their certificate state.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns one page of enrollments, newest first.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	where, args := enrollmentWhere(filter)
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s %s %s ORDER BY e.created_at DESC LIMIT %d OFFSET %d", enrollmentDetailSelect, enrollmentJoins, where, size, offset)
	var items []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s %s", enrollmentJoins, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return items, total, nil
}

// ListAll returns every enrollment matching filter, used for exports.
func (r *EnrollmentRepository) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	where, args := enrollmentWhere(filter)
	query := fmt.Sprintf("%s %s %s ORDER BY e.updated_at DESC", enrollmentDetailSelect, enrollmentJoins, where)
	var items []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("export enrollments: %w", err)
	}
	return items, nil
}

// FindByID fetches an enrollment with its student and course.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf("%s %s WHERE e.id = $1", enrollmentDetailSelect, enrollmentJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Exists reports whether the student is already enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = true)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// Create inserts a new pending enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	if enrollment.CertificateStatus == "" {
		enrollment.CertificateStatus = models.CertificatePending
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, certificate_status, status, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :certificate_status, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment and reports whether a row was deleted.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	return affected > 0, nil
}

// PendingByDNI returns the pending enrollments of the active student with dni.
func (r *EnrollmentRepository) PendingByDNI(ctx context.Context, dni string) ([]models.PendingRow, error) {
	const query = `SELECT s.id AS student_id, s.dni, s.name, s.lastname,
        e.id AS enrollment_id, e.course_id, c.name AS course_name, e.certificate_status
        FROM students s
        JOIN enrollments e ON e.student_id = s.id AND e.status = true
        JOIN courses c ON c.id = e.course_id
        WHERE s.dni = $1 AND s.status = true AND e.certificate_status = $2
        ORDER BY c.name`
	var rows []models.PendingRow
	if err := r.db.SelectContext(ctx, &rows, query, dni, models.CertificatePending); err != nil {
		return nil, fmt.Errorf("pending enrollments: %w", err)
	}
	return rows, nil
}

// CertifiedByDNI returns the issued certificates of dni for the public page.
func (r *EnrollmentRepository) CertifiedByDNI(ctx context.Context, dni string) ([]models.CertifiedCourse, error) {
	const query = `SELECT e.id AS enrollment_id, s.dni, s.name, s.lastname, c.name AS course_name,
        e.start_date, e.end_date, e.final_grade, e.pdf_url
        FROM students s
        JOIN enrollments e ON e.student_id = s.id AND e.status = true
        JOIN courses c ON c.id = e.course_id
        WHERE s.dni = $1 AND e.certificate_status = $2 AND e.pdf_url IS NOT NULL
        ORDER BY e.end_date DESC`
	var rows []models.CertifiedCourse
	if err := r.db.SelectContext(ctx, &rows, query, dni, models.CertificateCompleted); err != nil {
		return nil, fmt.Errorf("certified enrollments: %w", err)
	}
	return rows, nil
}

// CompleteCertificate records an issued certificate. Only pendiente rows are
// updated so the status never moves backwards.
func (r *EnrollmentRepository) CompleteCertificate(ctx context.Context, c models.CertificateCompletion) error {
	const query = `UPDATE enrollments SET certificate_status = $1, pdf_url = $2, final_grade = $3, start_date = $4, end_date = $5, updated_at = $6
        WHERE id = $7 AND certificate_status = $8`
	res, err := r.db.ExecContext(ctx, query,
		models.CertificateCompleted, c.PDFURL, c.FinalGrade, c.StartDate, c.EndDate, c.CompletedAt, c.EnrollmentID, models.CertificatePending)
	if err != nil {
		return fmt.Errorf("complete certificate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete certificate: %w", err)
	}
	if affected == 0 {
		return ErrEnrollmentNotPending
	}
	return nil
}

func enrollmentWhere(filter models.EnrollmentFilter) (string, []interface{}) {
	args := []interface{}{}
	conditions := []string{"e.status = true"}
	if filter.Search != "" {
		conditions = append(conditions, searchCondition(len(args)+1, "s.dni", "s.name", "s.lastname"))
		args = append(args, likePattern(filter.Search))
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.certificate_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
