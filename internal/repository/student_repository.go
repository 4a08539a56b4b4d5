package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/navicf-api/internal/models"
)

const studentColumns = "s.id, s.dni, s.name, s.lastname, s.email, s.phone, s.address, s.birth_date, s.status, s.created_at, s.updated_at"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns active students, newest first, optionally matching a search
// term against dni, name or lastname.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{}
	conditions := []string{"s.status = true"}
	if filter.Search != "" {
		conditions = append(conditions, searchCondition(len(args)+1, "s.dni", "s.name", "s.lastname"))
		args = append(args, likePattern(filter.Search))
	}
	base := "FROM students s WHERE " + strings.Join(conditions, " AND ")
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.created_at DESC LIMIT %d OFFSET %d", studentColumns, base, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID regardless of status.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindActiveByDNI fetches the active student owning dni.
func (r *StudentRepository) FindActiveByDNI(ctx context.Context, dni string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.dni = $1 AND s.status = true", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, dni); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByDNI checks if a student with given DNI exists optionally excluding an ID.
func (r *StudentRepository) ExistsByDNI(ctx context.Context, dni string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE dni = $1"
	args := []interface{}{dni}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check dni: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, dni, name, lastname, email, phone, address, birth_date, status, created_at, updated_at)
        VALUES (:id, :dni, :name, :lastname, :email, :phone, :address, :birth_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites the editable fields. Concurrent edits are last write wins.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET dni = :dni, name = :name, lastname = :lastname, email = :email, phone = :phone,
        address = :address, birth_date = :birth_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate soft deletes a student.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET status = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}
