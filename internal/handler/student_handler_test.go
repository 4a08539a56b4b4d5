package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/navicf-api/internal/models"
	"github.com/noah-isme/navicf-api/internal/service"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
)

type fakeStudentService struct {
	lastFilter  models.StudentFilter
	lastReq     service.StudentRequest
	lastID      string
	createErr   error
	deactivated string
}

func (f *fakeStudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.Student{{ID: "s1", DNI: "45678912"}}, models.NewPagination(filter.Page, 10, 1), nil
}

func (f *fakeStudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	if id != "s1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &models.Student{ID: id}, nil
}

func (f *fakeStudentService) Create(ctx context.Context, req service.StudentRequest) (*models.Student, error) {
	f.lastReq = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Student{ID: "s2", DNI: req.DNI}, nil
}

func (f *fakeStudentService) Update(ctx context.Context, id string, req service.StudentRequest) (*models.Student, error) {
	f.lastID = id
	f.lastReq = req
	return &models.Student{ID: id, DNI: req.DNI}, nil
}

func (f *fakeStudentService) Deactivate(ctx context.Context, id string) error {
	f.deactivated = id
	return nil
}

func TestStudentHandlerListEchoesSeq(t *testing.T) {
	svc := &fakeStudentService{}
	handler := NewStudentHandler(svc)

	c, w := newGinContext(http.MethodGet, "/admin/students?search=%20Ruiz%20&page=2&seq=7", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ruiz", svc.lastFilter.Search)
	assert.Equal(t, 2, svc.lastFilter.Page)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "7", env.Meta["seq"])
	assert.EqualValues(t, 1, env.Pagination["total_count"])
}

func TestStudentHandlerListBadPageDefaults(t *testing.T) {
	svc := &fakeStudentService{}
	handler := NewStudentHandler(svc)

	c, _ := newGinContext(http.MethodGet, "/admin/students?page=abc", nil)
	handler.List(c)
	assert.Equal(t, 1, svc.lastFilter.Page)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	handler := NewStudentHandler(&fakeStudentService{})

	c, w := newGinContext(http.MethodGet, "/admin/students/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandlerCreate(t *testing.T) {
	svc := &fakeStudentService{}
	handler := NewStudentHandler(svc)

	body := []byte(`{"dni":"45678912","name":"Ana","lastname":"Ruiz","email":"ana@mail.pe","phone":"987654321"}`)
	c, w := newGinContext(http.MethodPost, "/admin/students", body)
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "45678912", svc.lastReq.DNI)
}

func TestStudentHandlerCreateConflict(t *testing.T) {
	handler := NewStudentHandler(&fakeStudentService{createErr: appErrors.Clone(appErrors.ErrConflict, "Ya existe un alumno registrado con ese DNI")})

	c, w := newGinContext(http.MethodPost, "/admin/students", []byte(`{"dni":"45678912"}`))
	handler.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Ya existe un alumno registrado con ese DNI", decodeEnvelope(t, w).Error.Message)
}

func TestStudentHandlerUpdateAndDelete(t *testing.T) {
	svc := &fakeStudentService{}
	handler := NewStudentHandler(svc)

	c, w := newGinContext(http.MethodPut, "/admin/students/s1", []byte(`{"dni":"45678912"}`))
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.Update(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", svc.lastID)

	c, _ = newGinContext(http.MethodDelete, "/admin/students/s1", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "s1", svc.deactivated)
}
