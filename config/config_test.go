package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndRequired(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "deck")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "pharma")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "4242", cfg.HTTPPort)
	assert.Equal(t, 500*time.Millisecond, cfg.FetchInitialDelay)
	assert.Equal(t, 15, cfg.MaxStudies)
	assert.Equal(t, "host=db user=deck password=secret dbname=pharma port=5432 sslmode=disable", cfg.DSN())
	assert.False(t, cfg.ArchiveEnabled())
	assert.False(t, cfg.UseEuropePMC())
}

func TestLoad_MissingDBHost(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "deck")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "pharma")

	_, err := Load()
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyRequired)
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestLoad_BlankDBName(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "deck")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "  ")

	_, err := Load()
	assert.ErrorIs(t, err, ErrEmptyRequired)
}

func TestConfig_Switches(t *testing.T) {
	c := &Config{LiteratureProvider: " EuropePMC ", S3Key: "k", S3Secret: "s", S3URL: "http://minio", S3Bucket: "b"}
	assert.True(t, c.UseEuropePMC())
	assert.True(t, c.ArchiveEnabled())

	c.S3Bucket = ""
	assert.False(t, c.ArchiveEnabled())
}
