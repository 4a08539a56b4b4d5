package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/navicf-api/api/swagger"
	"github.com/noah-isme/navicf-api/internal/handler"
	internalmiddleware "github.com/noah-isme/navicf-api/internal/middleware"
	"github.com/noah-isme/navicf-api/internal/models"
	"github.com/noah-isme/navicf-api/internal/repository"
	"github.com/noah-isme/navicf-api/internal/service"
	"github.com/noah-isme/navicf-api/pkg/cache"
	"github.com/noah-isme/navicf-api/pkg/certificate"
	"github.com/noah-isme/navicf-api/pkg/config"
	"github.com/noah-isme/navicf-api/pkg/database"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
	"github.com/noah-isme/navicf-api/pkg/export"
	"github.com/noah-isme/navicf-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/navicf-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/navicf-api/pkg/middleware/requestid"
	"github.com/noah-isme/navicf-api/pkg/response"
	"github.com/noah-isme/navicf-api/pkg/storage"
	"github.com/noah-isme/navicf-api/pkg/validation"
)

// @title NAVICF API
// @version 1.0.0
// @description Back office and public API of the NAVICF heavy machinery training school.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const filesRoute = "/files"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	}

	store, localDir, err := newObjectStore(cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init object store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	renderer, err := certificate.NewRenderer(certificate.Layout{
		Institution:   cfg.Certificates.InstitutionName,
		City:          cfg.Certificates.City,
		LogoURL:       cfg.Certificates.LogoURL,
		SealURL:       cfg.Certificates.SealURL,
		BackgroundURL: cfg.Certificates.BackgroundURL,
		VerifyBaseURL: cfg.Certificates.VerifyBaseURL,
		Signatories:   certificate.ParseSignatories(cfg.Certificates.Signatories),
	})
	if err != nil {
		logr.Fatal("failed to load certificate template", zap.Error(err))
	}
	rasterizer := certificate.NewRasterizer(certificate.RasterizerOptions{
		ChromePath:  cfg.Certificates.ChromePath,
		SettleDelay: cfg.Certificates.SettleDelay,
		Logger:      logr.Named("rasterizer"),
	})
	defer rasterizer.Close()

	validate := validation.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DashboardTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	tracker := service.NewIssuanceTracker(cacheRepo, cfg.Certificates.LockTTL, logr)

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	authSvc := service.NewAuthService(adminRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr, cacheSvc)
	courseSvc := service.NewCourseService(courseRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, cacheSvc, validate, logr)
	certificateSvc := service.NewCertificateService(service.CertificateServiceParams{
		Repo:       enrollmentRepo,
		Renderer:   renderer,
		Rasterizer: rasterizer,
		PDF:        export.NewPDFExporter(),
		CSV:        export.NewCSVExporter(),
		Store:      store,
		Tracker:    tracker,
		Cache:      cacheSvc,
		Metrics:    metricsSvc,
		Logger:     logr,
		Config: service.CertificateConfig{
			Timeout:        cfg.Certificates.Timeout,
			Folder:         cfg.Storage.Folder,
			CleanupOrphans: cfg.Certificates.CleanupOrphans,
			LookupTTL:      cfg.Cache.LookupTTL,
		},
	})
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, cfg.Cache.DashboardTTL, logr)

	readiness := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	prefix := strings.TrimRight(cfg.APIPrefix, "/")
	handlers := routeHandlers{
		auth:         handler.NewAuthHandler(authSvc),
		students:     handler.NewStudentHandler(studentSvc),
		courses:      handler.NewCourseHandler(courseSvc),
		enrollments:  handler.NewEnrollmentHandler(enrollmentSvc),
		certificates: handler.NewCertificateHandler(certificateSvc),
		dashboard:    handler.NewDashboardHandler(dashboardSvc),
		metrics:      handler.NewMetricsHandler(metricsSvc, readiness),
		public:       handler.NewPublicHandler(courseSvc, cfg.Site, prefix+"/certificates/lookup", logr),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())

	registerRoutes(r, prefix, handlers, authSvc, logr)

	if localDir != "" {
		r.Static(filesRoute, localDir)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Warn("close redis", zap.Error(err))
	}
}

type routeHandlers struct {
	auth         *handler.AuthHandler
	students     *handler.StudentHandler
	courses      *handler.CourseHandler
	enrollments  *handler.EnrollmentHandler
	certificates *handler.CertificateHandler
	dashboard    *handler.DashboardHandler
	metrics      *handler.MetricsHandler
	public       *handler.PublicHandler
}

func registerRoutes(r *gin.Engine, prefix string, h routeHandlers, auth internalmiddleware.TokenAuthenticator, logr *zap.Logger) {
	r.GET("/", h.public.Home)
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/courses", h.courses.List)
	api.GET("/courses/:id/modules", h.courses.Modules)
	api.GET("/certificates/lookup", h.certificates.Lookup)
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(auth))
	secured.GET("/auth/me", h.auth.Me)

	admin := secured.Group("/admin")
	admin.Use(internalmiddleware.Audit(logr))
	admin.GET("/dashboard", h.dashboard.Stats)
	admin.GET("/metrics", h.metrics.Snapshot)

	admin.GET("/students", h.students.List)
	admin.POST("/students", h.students.Create)
	admin.GET("/students/:id", h.students.Get)
	admin.PUT("/students/:id", h.students.Update)
	admin.DELETE("/students/:id", h.students.Delete)

	admin.GET("/courses", h.courses.List)

	admin.GET("/enrollments", h.enrollments.List)
	admin.POST("/enrollments", h.enrollments.Create)
	admin.GET("/enrollments/pending", h.enrollments.Pending)
	admin.DELETE("/enrollments/:id", internalmiddleware.RequireRoles(models.RoleAdmin), h.enrollments.Delete)

	admin.GET("/certificates", h.certificates.List)
	admin.POST("/certificates", h.certificates.Issue)
	admin.GET("/certificates/export", h.certificates.Export)
}

// newObjectStore builds the configured backend. The returned directory is
// non-empty only for the local driver, whose files the API serves itself.
func newObjectStore(cfg config.StorageConfig) (storage.ObjectStore, string, error) {
	switch cfg.Driver {
	case config.StorageDriverSupabase:
		store, err := storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.Bucket, cfg.SupabaseTimeout)
		return store, "", err
	case config.StorageDriverCloudinary:
		store, err := storage.NewCloudinaryStore(cfg.CloudinaryURL, cfg.Folder)
		return store, "", err
	case config.StorageDriverLocal, "":
		store, err := storage.NewLocalStore(cfg.LocalDir, cfg.LocalBaseURL)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
