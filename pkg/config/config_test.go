package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, "Certificados", cfg.Storage.Folder)
	assert.Equal(t, 30*time.Second, cfg.Certificates.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Certificates.SettleDelay)
	assert.True(t, cfg.Certificates.CleanupOrphans)
	assert.Len(t, cfg.Certificates.Signatories, 3)
	assert.Equal(t, "Gerencia General|GERENTE GENERAL", cfg.Certificates.Signatories[0])
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORAGE_DRIVER", "Supabase")
	v.Set("SUPABASE_URL", "https://project.supabase.co/")
	v.Set("CERTIFICATES_TIMEOUT", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://navicf.pe , ,http://localhost:5173")

	cfg := fromViper(v)

	assert.Equal(t, StorageDriverSupabase, cfg.Storage.Driver)
	assert.Equal(t, "https://project.supabase.co", cfg.Storage.SupabaseURL)
	assert.Equal(t, 30*time.Second, cfg.Certificates.Timeout)
	assert.Equal(t, []string{"https://navicf.pe", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}
