package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/navicf-api/internal/models"
	"github.com/noah-isme/navicf-api/internal/repository"
	"github.com/noah-isme/navicf-api/pkg/certificate"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
	"github.com/noah-isme/navicf-api/pkg/storage"
)

type fakeCertificateRepo struct {
	detail      *models.EnrollmentDetail
	findErr     error
	completeErr error
	completions []models.CertificateCompletion
	certified   []models.CertifiedCourse
	certCalls   int
	listAll     []models.EnrollmentDetail
	lastFilter  models.EnrollmentFilter
}

func (f *fakeCertificateRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	f.lastFilter = filter
	return f.listAll, len(f.listAll), nil
}

func (f *fakeCertificateRepo) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	f.lastFilter = filter
	return f.listAll, nil
}

func (f *fakeCertificateRepo) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	detail := *f.detail
	return &detail, nil
}

func (f *fakeCertificateRepo) CertifiedByDNI(ctx context.Context, dni string) ([]models.CertifiedCourse, error) {
	f.certCalls++
	return f.certified, nil
}

func (f *fakeCertificateRepo) CompleteCertificate(ctx context.Context, c models.CertificateCompletion) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completions = append(f.completions, c)
	return nil
}

type fakeRenderer struct {
	data certificate.Data
	err  error
}

func (f *fakeRenderer) Render(d certificate.Data) ([]byte, error) {
	f.data = d
	if f.err != nil {
		return nil, f.err
	}
	return []byte("<div id=\"certificate\"></div>"), nil
}

// fakeRasterizer returns a small PNG, or blocks until ctx is done when block
// is set.
type fakeRasterizer struct {
	block bool
	err   error
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, html []byte) ([]byte, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewNRGBA(image.Rect(0, 0, 40, 28))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.NRGBA{R: 200, A: 255})
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type fakeStore struct {
	mu        sync.Mutex
	puts      map[string][]byte
	deleted   []string
	putErr    error
	deleteErr error
}

func (f *fakeStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	if _, ok := f.puts[path]; ok {
		return "", storage.ErrObjectExists
	}
	f.puts[path] = data
	return "https://cdn.example/" + path, nil
}

func (f *fakeStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	return f.deleteErr
}

type certificateFixture struct {
	repo       *fakeCertificateRepo
	renderer   *fakeRenderer
	rasterizer *fakeRasterizer
	store      *fakeStore
	svc        *CertificateService
}

func newCertificateFixture(t *testing.T, cfg CertificateConfig) *certificateFixture {
	t.Helper()
	f := &certificateFixture{
		repo: &fakeCertificateRepo{detail: &models.EnrollmentDetail{
			Enrollment:      models.Enrollment{ID: "enr-1", StudentID: "stu-1", CourseID: "c-1", CertificateStatus: models.CertificatePending, Active: true},
			StudentDNI:      "45678912",
			StudentName:     "María",
			StudentLastname: "Ñahui",
			CourseName:      "Excavadora Hidráulica",
			DurationValue:   3,
			DurationUnit:    models.DurationMonths,
		}},
		renderer:   &fakeRenderer{},
		rasterizer: &fakeRasterizer{},
		store:      &fakeStore{},
	}
	if cfg.Folder == "" {
		cfg.Folder = "Certificados"
	}
	f.svc = NewCertificateService(CertificateServiceParams{
		Repo:       f.repo,
		Renderer:   f.renderer,
		Rasterizer: f.rasterizer,
		Store:      f.store,
		Metrics:    NewMetricsService(),
		Logger:     zap.NewNop(),
		Config:     cfg,
	})
	f.svc.now = func() time.Time { return time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC) }
	return f
}

func validIssueRequest() IssueCertificateRequest {
	return IssueCertificateRequest{
		EnrollmentID: "enr-1",
		DNI:          "45678912",
		StartDate:    "2026-07-01",
		EndDate:      "2026-09-30",
		FinalGrade:   17,
	}
}

func TestIssueCertificateSuccess(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{Timeout: 5 * time.Second, CleanupOrphans: true})

	issued, err := f.svc.Issue(context.Background(), validIssueRequest())
	require.NoError(t, err)

	wantPath := "Certificados/45678912-Excavadora_Hidraulica-1792422000000.pdf"
	assert.Equal(t, wantPath, issued.Path)
	assert.Equal(t, "https://cdn.example/"+wantPath, issued.PDFURL)
	assert.Equal(t, "María Ñahui", issued.StudentName)

	require.Contains(t, f.store.puts, wantPath)
	assert.True(t, bytes.HasPrefix(f.store.puts[wantPath], []byte("%PDF")))

	require.Len(t, f.repo.completions, 1)
	completion := f.repo.completions[0]
	assert.Equal(t, "enr-1", completion.EnrollmentID)
	assert.Equal(t, 17.0, completion.FinalGrade)
	assert.Equal(t, issued.PDFURL, completion.PDFURL)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), completion.StartDate)

	assert.Equal(t, "3 meses", f.renderer.data.Duration)
	assert.Equal(t, IssuanceIdle, f.svc.tracker.State("enr-1"))
}

func TestIssueCertificateValidationHappensFirst(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{})

	cases := map[string]func(r *IssueCertificateRequest){
		"grade above range": func(r *IssueCertificateRequest) { r.FinalGrade = 21 },
		"grade below range": func(r *IssueCertificateRequest) { r.FinalGrade = 0 },
		"end equals start":  func(r *IssueCertificateRequest) { r.EndDate = r.StartDate },
		"end before start":  func(r *IssueCertificateRequest) { r.EndDate = "2026-06-30" },
		"bad dni":           func(r *IssueCertificateRequest) { r.DNI = "4567" },
		"missing course":    func(r *IssueCertificateRequest) { r.EnrollmentID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validIssueRequest()
			mutate(&req)
			_, err := f.svc.Issue(context.Background(), req)
			assertCode(t, err, appErrors.ErrValidation.Code)
		})
	}
	assert.Empty(t, f.store.puts)
	assert.Equal(t, IssuanceIdle, f.svc.tracker.State("enr-1"))
}

func TestIssueCertificateBoundaryGradesAccepted(t *testing.T) {
	for _, grade := range []float64{1, 20} {
		f := newCertificateFixture(t, CertificateConfig{})
		req := validIssueRequest()
		req.FinalGrade = grade
		_, err := f.svc.Issue(context.Background(), req)
		require.NoError(t, err)
	}
}

func TestIssueCertificateTimeoutSkipsUpload(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{Timeout: 20 * time.Millisecond})
	f.rasterizer.block = true

	started := time.Now()
	_, err := f.svc.Issue(context.Background(), validIssueRequest())
	assertCode(t, err, appErrors.ErrCertificateTimeout.Code)
	assert.Less(t, time.Since(started), 2*time.Second)

	assert.Empty(t, f.store.puts)
	assert.Empty(t, f.repo.completions)
	assert.Equal(t, IssuanceIdle, f.svc.tracker.State("enr-1"))
}

func TestIssueCertificateCallerCancelIsNotTimeout(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{Timeout: 5 * time.Second})
	f.rasterizer.block = true

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := f.svc.Issue(ctx, validIssueRequest())
	appErr := assertCode(t, err, appErrors.ErrCertificateCancelled.Code)
	assert.Equal(t, 499, appErr.Status)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, f.store.puts)
	assert.Empty(t, f.repo.completions)
}

func TestIssueCertificateRenderFailure(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{})
	f.rasterizer.err = errors.New("chrome crashed")

	_, err := f.svc.Issue(context.Background(), validIssueRequest())
	assertCode(t, err, appErrors.ErrCertificateRender.Code)
	assert.Empty(t, f.store.puts)
}

func TestIssueCertificateUploadFailure(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{})
	f.store.putErr = errors.New("503 from storage")

	_, err := f.svc.Issue(context.Background(), validIssueRequest())
	assertCode(t, err, appErrors.ErrCertificateUpload.Code)
	assert.Empty(t, f.repo.completions)
}

func TestIssueCertificateRecordFailureDeletesUpload(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{CleanupOrphans: true})
	f.repo.completeErr = errors.New("deadlock detected")

	_, err := f.svc.Issue(context.Background(), validIssueRequest())
	assertCode(t, err, appErrors.ErrCertificateRecord.Code)

	require.Len(t, f.store.puts, 1)
	require.Len(t, f.store.deleted, 1)
	for path := range f.store.puts {
		assert.Equal(t, path, f.store.deleted[0])
	}
}

func TestIssueCertificateRecordFailureKeepsOrphanWhenCleanupDisabled(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{CleanupOrphans: false})
	f.repo.completeErr = repository.ErrEnrollmentNotPending

	_, err := f.svc.Issue(context.Background(), validIssueRequest())
	appErr := assertCode(t, err, appErrors.ErrCertificateRecord.Code)
	assert.Equal(t, "enrollment is no longer pending", appErr.Message)

	assert.Len(t, f.store.puts, 1)
	assert.Empty(t, f.store.deleted)
	assert.Equal(t, uint64(1), f.svc.metrics.Snapshot().CertificatesFailed)
}

func TestIssueCertificateRejectsCompletedEnrollment(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{})
	f.repo.detail.CertificateStatus = models.CertificateCompleted

	_, err := f.svc.Issue(context.Background(), validIssueRequest())
	assertCode(t, err, appErrors.ErrConflict.Code)
	assert.Empty(t, f.store.puts)
}

func TestIssueCertificateRejectsForeignDNI(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{})
	req := validIssueRequest()
	req.DNI = "11112222"

	_, err := f.svc.Issue(context.Background(), req)
	assertCode(t, err, appErrors.ErrValidation.Code)
}

func TestIssueCertificateRejectsConcurrentIssuance(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{Timeout: time.Second})
	ticket, err := f.svc.tracker.Begin(context.Background(), "enr-1")
	require.NoError(t, err)

	_, err = f.svc.Issue(context.Background(), validIssueRequest())
	assertCode(t, err, appErrors.ErrConflict.Code)
	assert.Empty(t, f.store.puts)

	require.NoError(t, ticket.Finish(context.Background(), false))
	_, err = f.svc.Issue(context.Background(), validIssueRequest())
	require.NoError(t, err)
}

func TestLookupCertified(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{})

	_, _, err := f.svc.LookupCertified(context.Background(), "123")
	assertCode(t, err, appErrors.ErrValidation.Code)
	assert.Zero(t, f.repo.certCalls)

	_, _, err = f.svc.LookupCertified(context.Background(), "45678912")
	assertCode(t, err, appErrors.ErrNotFound.Code)

	f.repo.certified = []models.CertifiedCourse{{EnrollmentID: "enr-1", CourseName: "Excavadora", PDFURL: "https://cdn.example/x.pdf"}}
	courses, hit, err := f.svc.LookupCertified(context.Background(), "45678912")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, courses, 1)
}

func TestCertificateListForcesCompletedStatus(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{})

	_, _, err := f.svc.List(context.Background(), models.EnrollmentFilter{Status: models.CertificatePending, CourseID: "c-1"})
	require.NoError(t, err)
	assert.Equal(t, models.CertificateCompleted, f.repo.lastFilter.Status)
	assert.Equal(t, "c-1", f.repo.lastFilter.CourseID)
}

func TestCertificateExport(t *testing.T) {
	f := newCertificateFixture(t, CertificateConfig{})
	grade := 18.5
	url := "https://cdn.example/a.pdf"
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	f.repo.listAll = []models.EnrollmentDetail{{
		Enrollment:      models.Enrollment{ID: "e1", StartDate: &start, FinalGrade: &grade, PDFURL: &url},
		StudentDNI:      "45678912",
		StudentName:     "Ana",
		StudentLastname: "Quispe",
		CourseName:      "Motoniveladora",
	}}

	file, err := f.svc.Export(context.Background(), "CSV", models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, "certificados-20261019-150000.csv", file.Filename)
	body := string(file.Data)
	assert.True(t, strings.Contains(body, "45678912,Ana Quispe,Motoniveladora,2026-01-05,,18.5,https://cdn.example/a.pdf"), body)

	file, err = f.svc.Export(context.Background(), "pdf", models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)

	_, err = f.svc.Export(context.Background(), "xlsx", models.EnrollmentFilter{})
	assertCode(t, err, appErrors.ErrValidation.Code)
}
