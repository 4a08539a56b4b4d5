package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/navicf-api/internal/models"
)

func TestCourseRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "image_url", "discount", "duration_value", "duration_unit", "rating", "status", "created_at"}).
		AddRow("c-1", "Excavadora", nil, nil, 10.0, 3, "meses", 4.8, true, time.Now())
	mock.ExpectQuery("FROM courses WHERE status = true ORDER BY name").WillReturnRows(rows)

	courses, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, models.DurationMonths, courses[0].DurationUnit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListModules(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"module_id", "name", "description"}).
		AddRow("m-1", "Seguridad", "Normas de seguridad en obra").
		AddRow("m-2", "Mantenimiento", nil)
	mock.ExpectQuery("FROM course_modules cm JOIN modules m").
		WithArgs("c-1").
		WillReturnRows(rows)

	modules, err := repo.ListModules(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Nil(t, modules[1].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}
