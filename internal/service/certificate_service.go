package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/navicf-api/internal/models"
	"github.com/noah-isme/navicf-api/internal/repository"
	"github.com/noah-isme/navicf-api/pkg/certificate"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
	"github.com/noah-isme/navicf-api/pkg/export"
	"github.com/noah-isme/navicf-api/pkg/filename"
	"github.com/noah-isme/navicf-api/pkg/storage"
	"github.com/noah-isme/navicf-api/pkg/validation"
)

// OutcomeIssued labels a successful issuance in metrics.
const OutcomeIssued = "issued"

const (
	pdfContentType = "application/pdf"
	csvContentType = "text/csv; charset=utf-8"
)

// Export formats accepted by CertificateService.Export.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type certificateRepository interface {
	enrollmentLister
	ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	CertifiedByDNI(ctx context.Context, dni string) ([]models.CertifiedCourse, error)
	CompleteCertificate(ctx context.Context, c models.CertificateCompletion) error
}

type htmlRenderer interface {
	Render(d certificate.Data) ([]byte, error)
}

type rasterizer interface {
	Rasterize(ctx context.Context, html []byte) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderImagePage(jpeg []byte) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// CertificateConfig tunes the issuance workflow.
type CertificateConfig struct {
	Timeout        time.Duration
	Folder         string
	CleanupOrphans bool
	LookupTTL      time.Duration
}

// IssueCertificateRequest is the form submitted by the back office.
type IssueCertificateRequest struct {
	EnrollmentID string  `json:"enrollment_id"`
	DNI          string  `json:"dni"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	FinalGrade   float64 `json:"final_grade"`
}

// IssuedCertificate describes a stored certificate.
type IssuedCertificate struct {
	EnrollmentID string    `json:"enrollment_id"`
	StudentName  string    `json:"student_name"`
	CourseName   string    `json:"course_name"`
	Path         string    `json:"path"`
	PDFURL       string    `json:"pdf_url"`
	CompletedAt  time.Time `json:"completed_at"`
}

// ExportFile is a rendered listing ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CertificateServiceParams groups constructor dependencies.
type CertificateServiceParams struct {
	Repo       certificateRepository
	Renderer   htmlRenderer
	Rasterizer rasterizer
	PDF        pdfRenderer
	CSV        csvRenderer
	Store      storage.ObjectStore
	Tracker    *IssuanceTracker
	Cache      *CacheService
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     CertificateConfig
}

// CertificateService issues, lists and exports certificates.
type CertificateService struct {
	repo       certificateRepository
	renderer   htmlRenderer
	rasterizer rasterizer
	pdf        pdfRenderer
	csv        csvRenderer
	store      storage.ObjectStore
	tracker    *IssuanceTracker
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        CertificateConfig
	now        func() time.Time
}

// NewCertificateService constructs a CertificateService with defaults.
func NewCertificateService(params CertificateServiceParams) *CertificateService {
	cfg := params.Config
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Folder == "" {
		cfg.Folder = "Certificados"
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracker := params.Tracker
	if tracker == nil {
		tracker = NewIssuanceTracker(nil, 0, logger)
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &CertificateService{
		repo:       params.Repo,
		renderer:   params.Renderer,
		rasterizer: params.Rasterizer,
		pdf:        pdf,
		csv:        csv,
		store:      params.Store,
		tracker:    tracker,
		cache:      params.Cache,
		metrics:    params.Metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Issue runs the issuance workflow: validate, guard, render, rasterize,
// assemble, upload and record. Steps run strictly in order and nothing is
// retried.
func (s *CertificateService) Issue(ctx context.Context, req IssueCertificateRequest) (*IssuedCertificate, error) {
	start, end, err := validateIssue(req)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tracker.Begin(ctx, req.EnrollmentID)
	if err != nil {
		return nil, err
	}
	issued, err := s.issue(ctx, req, start, end)
	if finishErr := ticket.Finish(ctx, err == nil); finishErr != nil {
		s.logger.Warn("issuance state update rejected", zap.String("enrollment_id", req.EnrollmentID), zap.Error(finishErr))
	}

	if err != nil {
		s.metrics.RecordCertificateOutcome(appErrors.FromError(err).Code)
		s.logger.Warn("certificate issuance failed", zap.String("enrollment_id", req.EnrollmentID), zap.Error(err))
		return nil, err
	}
	s.metrics.RecordCertificateOutcome(OutcomeIssued)
	s.logger.Info("certificate issued", zap.String("enrollment_id", issued.EnrollmentID), zap.String("path", issued.Path))
	return issued, nil
}

func validateIssue(req IssueCertificateRequest) (time.Time, time.Time, error) {
	if strings.TrimSpace(req.EnrollmentID) == "" {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "Seleccione un curso pendiente")
	}
	if err := validation.DNI(req.DNI); err != nil {
		return time.Time{}, time.Time{}, validationError(err)
	}
	if err := validation.Grade(req.FinalGrade); err != nil {
		return time.Time{}, time.Time{}, validationError(err)
	}
	start, end, err := validation.DateRange(req.StartDate, req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, validationError(err)
	}
	return start, end, nil
}

func (s *CertificateService) issue(ctx context.Context, req IssueCertificateRequest, start, end time.Time) (*IssuedCertificate, error) {
	enrollment, err := s.repo.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
	}
	if enrollment.StudentDNI != req.DNI {
		return nil, appErrors.Clone(appErrors.ErrValidation, "La inscripción no corresponde al DNI ingresado")
	}
	if enrollment.CertificateStatus != models.CertificatePending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "certificate already issued for this enrollment")
	}

	issuedAt := s.now()
	data := certificate.Data{
		StudentName: strings.TrimSpace(enrollment.StudentName + " " + enrollment.StudentLastname),
		DNI:         enrollment.StudentDNI,
		CourseName:  enrollment.CourseName,
		StartDate:   start,
		EndDate:     end,
		IssuedAt:    issuedAt,
		Duration:    models.Course{DurationValue: enrollment.DurationValue, DurationUnit: enrollment.DurationUnit}.DurationText(),
	}

	pdf, err := s.generate(ctx, data)
	if err != nil {
		return nil, err
	}

	path := filename.Certificate(s.cfg.Folder, enrollment.StudentDNI, enrollment.CourseName, issuedAt)
	uploadStart := time.Now()
	publicURL, err := s.store.Put(ctx, path, pdf, pdfContentType)
	s.metrics.ObserveCertificateStage(StageUpload, time.Since(uploadStart))
	if err != nil {
		if errors.Is(err, storage.ErrObjectExists) {
			return nil, appErrors.WrapAs(err, appErrors.ErrCertificateUpload, "certificate file already exists")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrCertificateUpload, "")
	}

	completedAt := s.now().UTC()
	recordStart := time.Now()
	err = s.repo.CompleteCertificate(ctx, models.CertificateCompletion{
		EnrollmentID: enrollment.ID,
		StartDate:    start,
		EndDate:      end,
		FinalGrade:   req.FinalGrade,
		PDFURL:       publicURL,
		CompletedAt:  completedAt,
	})
	s.metrics.ObserveCertificateStage(StageRecord, time.Since(recordStart))
	if err != nil {
		s.handleOrphan(ctx, path, publicURL)
		message := appErrors.ErrCertificateRecord.Message
		if errors.Is(err, repository.ErrEnrollmentNotPending) {
			message = "enrollment is no longer pending"
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrCertificateRecord, message)
	}

	_ = s.cache.Invalidate(ctx, certificateLookupKey(enrollment.StudentDNI))

	return &IssuedCertificate{
		EnrollmentID: enrollment.ID,
		StudentName:  data.StudentName,
		CourseName:   enrollment.CourseName,
		Path:         path,
		PDFURL:       publicURL,
		CompletedAt:  completedAt,
	}, nil
}

// generate renders, rasterizes and assembles the PDF under the issuance
// timeout. The deadline cancels the browser work; a timeout is reported as
// CERTIFICATE_TIMEOUT and nothing is uploaded.
func (s *CertificateService) generate(ctx context.Context, data certificate.Data) ([]byte, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	stageStart := time.Now()
	html, err := s.renderer.Render(data)
	s.metrics.ObserveCertificateStage(StageRender, time.Since(stageStart))
	if err != nil {
		return nil, renderFailure(err)
	}

	stageStart = time.Now()
	bitmap, err := s.rasterizer.Rasterize(genCtx, html)
	s.metrics.ObserveCertificateStage(StageRasterize, time.Since(stageStart))
	if err != nil {
		if interrupted := interruption(ctx, genCtx); interrupted != nil {
			return nil, interrupted
		}
		return nil, renderFailure(err)
	}

	stageStart = time.Now()
	jpeg, _, err := certificate.NormalizeJPEG(bitmap)
	if err != nil {
		return nil, renderFailure(err)
	}
	pdf, err := s.pdf.RenderImagePage(jpeg)
	s.metrics.ObserveCertificateStage(StageAssemble, time.Since(stageStart))
	if err != nil {
		return nil, renderFailure(err)
	}

	if interrupted := interruption(ctx, genCtx); interrupted != nil {
		return nil, interrupted
	}
	return pdf, nil
}

func renderFailure(err error) error {
	return appErrors.WrapAs(err, appErrors.ErrCertificateRender, "")
}

// interruption reports why genCtx ended early. Only the generation deadline
// counts as CERTIFICATE_TIMEOUT; a caller that went away is a cancellation.
func interruption(ctx, genCtx context.Context) error {
	if err := ctx.Err(); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrCertificateCancelled, "")
	}
	if err := genCtx.Err(); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrCertificateTimeout, "")
	}
	return nil
}

// handleOrphan deletes an uploaded file whose record update failed, or only
// reports it when cleanup is disabled.
func (s *CertificateService) handleOrphan(ctx context.Context, path, publicURL string) {
	fields := []zap.Field{zap.String("path", path), zap.String("url", publicURL)}
	if !s.cfg.CleanupOrphans {
		s.metrics.RecordOrphanedObject()
		s.logger.Error("certificate file left without record", fields...)
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.store.Delete(cleanupCtx, path); err != nil {
		s.metrics.RecordOrphanedObject()
		s.logger.Error("failed to delete orphaned certificate file", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("deleted orphaned certificate file", fields...)
}

// List returns one page of issued certificates.
func (s *CertificateService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	filter.Status = models.CertificateCompleted
	return listEnrollments(ctx, s.repo, filter, "failed to list certificates")
}

// LookupCertified returns the completed certificates of dni. Results are
// cached until the next issuance for the same DNI.
func (s *CertificateService) LookupCertified(ctx context.Context, dni string) ([]models.CertifiedCourse, bool, error) {
	dni = strings.TrimSpace(dni)
	if err := validation.DNI(dni); err != nil {
		return nil, false, validationError(err)
	}
	courses, hit, err := remember(ctx, s.cache, certificateLookupKey(dni), s.cfg.LookupTTL, func(ctx context.Context) ([]models.CertifiedCourse, error) {
		return s.repo.CertifiedByDNI(ctx, dni)
	})
	if err != nil {
		return nil, false, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lookup certificates")
	}
	if len(courses) == 0 {
		return nil, hit, appErrors.Clone(appErrors.ErrNotFound, "No se encontraron certificados para el DNI ingresado")
	}
	return courses, hit, nil
}

// Export renders every certificate matching filter as CSV or PDF.
func (s *CertificateService) Export(ctx context.Context, format string, filter models.EnrollmentFilter) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	if searchTooShort(filter.Search) {
		filter.Search = ""
	}
	filter.Status = models.CertificateCompleted

	items, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load certificates")
	}
	dataset := certificateDataset(items)
	stamp := s.now().UTC().Format("20060102-150405")

	if format == FormatPDF {
		data, err := s.pdf.Render(dataset, "Certificados emitidos")
		if err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render pdf export")
		}
		return &ExportFile{Filename: fmt.Sprintf("certificados-%s.pdf", stamp), ContentType: pdfContentType, Data: data}, nil
	}
	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render csv export")
	}
	return &ExportFile{Filename: fmt.Sprintf("certificados-%s.csv", stamp), ContentType: csvContentType, Data: data}, nil
}

func certificateDataset(items []models.EnrollmentDetail) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"DNI", "Alumno", "Curso", "Inicio", "Fin", "Nota", "Certificado"},
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		row := map[string]string{
			"DNI":    item.StudentDNI,
			"Alumno": strings.TrimSpace(item.StudentName + " " + item.StudentLastname),
			"Curso":  item.CourseName,
		}
		if item.StartDate != nil {
			row["Inicio"] = item.StartDate.Format(validation.DateLayout)
		}
		if item.EndDate != nil {
			row["Fin"] = item.EndDate.Format(validation.DateLayout)
		}
		if item.FinalGrade != nil {
			row["Nota"] = fmt.Sprintf("%g", *item.FinalGrade)
		}
		if item.PDFURL != nil {
			row["Certificado"] = *item.PDFURL
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset
}
