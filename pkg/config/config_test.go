package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, 5000, cfg.Import.MaxRows)
	assert.Equal(t, 10, cfg.Import.SampleRows)
	assert.Equal(t, AIProviderNone, cfg.AI.Provider)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Contains(t, cfg.Documents.AllowedMIMEs, "application/pdf")
	assert.Equal(t, 2, cfg.Activity.Workers)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("AI_PROVIDER", " Gemini ")
	v.Set("AI_API_KEY", "key")
	v.Set("AI_TIMEOUT", "bogus")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)
	assert.Equal(t, AIProviderGemini, cfg.AI.Provider)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("nope", time.Minute))
}
