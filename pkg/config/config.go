package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers supported by the certificate upload step.
const (
	StorageDriverLocal      = "local"
	StorageDriverSupabase   = "supabase"
	StorageDriverCloudinary = "cloudinary"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Storage      StorageConfig
	Certificates CertificatesConfig
	Cache        CacheConfig
	Site         SiteConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects and configures the object store receiving certificate PDFs.
type StorageConfig struct {
	Driver string
	Bucket string
	Folder string

	LocalDir     string
	LocalBaseURL string

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseTimeout    time.Duration

	CloudinaryURL string
}

// CertificatesConfig tunes the issuance workflow.
type CertificatesConfig struct {
	Timeout        time.Duration
	SettleDelay    time.Duration
	ChromePath     string
	CleanupOrphans bool
	LockTTL        time.Duration

	InstitutionName string
	City            string
	LogoURL         string
	SealURL         string
	BackgroundURL   string
	VerifyBaseURL   string
	Signatories     []string
}

// CacheConfig governs Redis backed response caching.
type CacheConfig struct {
	Enabled      bool
	DashboardTTL time.Duration
	LookupTTL    time.Duration
}

// SiteConfig holds values rendered on the public marketing page.
type SiteConfig struct {
	Name         string
	ContactPhone string
	ContactEmail string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 8*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Driver:             strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Bucket:             v.GetString("STORAGE_BUCKET"),
		Folder:             v.GetString("STORAGE_FOLDER"),
		LocalDir:           v.GetString("STORAGE_LOCAL_DIR"),
		LocalBaseURL:       strings.TrimRight(v.GetString("STORAGE_LOCAL_BASE_URL"), "/"),
		SupabaseURL:        strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		SupabaseServiceKey: v.GetString("SUPABASE_SERVICE_KEY"),
		SupabaseTimeout:    parseDuration(v.GetString("SUPABASE_TIMEOUT"), 20*time.Second),
		CloudinaryURL:      v.GetString("CLOUDINARY_URL"),
	}

	cfg.Certificates = CertificatesConfig{
		Timeout:         parseDuration(v.GetString("CERTIFICATES_TIMEOUT"), 30*time.Second),
		SettleDelay:     parseDuration(v.GetString("CERTIFICATES_SETTLE_DELAY"), 0),
		ChromePath:      v.GetString("CERTIFICATES_CHROME_PATH"),
		CleanupOrphans:  v.GetBool("CERTIFICATES_CLEANUP_ORPHANS"),
		LockTTL:         parseDuration(v.GetString("CERTIFICATES_LOCK_TTL"), 2*time.Minute),
		InstitutionName: v.GetString("CERTIFICATES_INSTITUTION"),
		City:            v.GetString("CERTIFICATES_CITY"),
		LogoURL:         v.GetString("CERTIFICATES_LOGO_URL"),
		SealURL:         v.GetString("CERTIFICATES_SEAL_URL"),
		BackgroundURL:   v.GetString("CERTIFICATES_BACKGROUND_URL"),
		VerifyBaseURL:   strings.TrimRight(v.GetString("CERTIFICATES_VERIFY_BASE_URL"), "/"),
		Signatories:     splitAndTrim(v.GetString("CERTIFICATES_SIGNATORIES")),
	}

	cfg.Cache = CacheConfig{
		Enabled:      v.GetBool("CACHE_ENABLED"),
		DashboardTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
		LookupTTL:    parseDuration(v.GetString("LOOKUP_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Site = SiteConfig{
		Name:         v.GetString("SITE_NAME"),
		ContactPhone: v.GetString("SITE_CONTACT_PHONE"),
		ContactEmail: v.GetString("SITE_CONTACT_EMAIL"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "navicf")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "8h")
	v.SetDefault("JWT_ISSUER", "navicf-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_BUCKET", "Navicf-Storage-O_O")
	v.SetDefault("STORAGE_FOLDER", "Certificados")
	v.SetDefault("STORAGE_LOCAL_DIR", "./storage")
	v.SetDefault("STORAGE_LOCAL_BASE_URL", "http://localhost:8080/files")
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_SERVICE_KEY", "")
	v.SetDefault("SUPABASE_TIMEOUT", "20s")
	v.SetDefault("CLOUDINARY_URL", "")

	v.SetDefault("CERTIFICATES_TIMEOUT", "30s")
	v.SetDefault("CERTIFICATES_SETTLE_DELAY", "0s")
	v.SetDefault("CERTIFICATES_CHROME_PATH", "")
	v.SetDefault("CERTIFICATES_CLEANUP_ORPHANS", true)
	v.SetDefault("CERTIFICATES_LOCK_TTL", "2m")
	v.SetDefault("CERTIFICATES_INSTITUTION", "CEP Cursos de Equipos Pesados")
	v.SetDefault("CERTIFICATES_CITY", "LIMA/PERU")
	v.SetDefault("CERTIFICATES_LOGO_URL", "")
	v.SetDefault("CERTIFICATES_SEAL_URL", "")
	v.SetDefault("CERTIFICATES_BACKGROUND_URL", "")
	v.SetDefault("CERTIFICATES_VERIFY_BASE_URL", "http://localhost:8080/certificados")
	v.SetDefault("CERTIFICATES_SIGNATORIES", "Gerencia General|GERENTE GENERAL,Jefatura Tecnica|ING. MECANICO,Instructor Principal|INSTRUCTOR DE EQUIPOS")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("LOOKUP_CACHE_TTL", "10m")

	v.SetDefault("SITE_NAME", "NAVICF")
	v.SetDefault("SITE_CONTACT_PHONE", "")
	v.SetDefault("SITE_CONTACT_EMAIL", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
