package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, "parquet", cfg.Format)
	assert.Equal(t, "snappy", cfg.EffectiveCompression())
	assert.Equal(t, PolicyError, cfg.MissingSeparatorPolicy)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, "chunk_size"},
		{"negative chunk size", func(c *Config) { c.ChunkSize = -3 }, "chunk_size"},
		{"unknown format", func(c *Config) { c.Format = "csv" }, "format"},
		{"unknown policy", func(c *Config) { c.MissingSeparatorPolicy = "drop" }, "missing_separator_policy"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"queue too deep", func(c *Config) { c.QueueDepth = 1000 }, "queue_depth"},
		{"format codec mismatch", func(c *Config) { c.Format = "arrow"; c.Compression = "snappy" }, "not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestEffectiveCompressionPerFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "arrow"
	assert.Equal(t, "none", cfg.EffectiveCompression())
	require.NoError(t, cfg.Validate())

	cfg.Format = "avro"
	assert.Equal(t, "snappy", cfg.EffectiveCompression())

	cfg.Compression = "gzip"
	assert.Equal(t, "gzip", cfg.EffectiveCompression())
	require.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("VCF_TEST_CHUNK_FORMAT", "arrow")
	path := filepath.Join(t.TempDir(), "convert.yaml")
	content := `
chunk_size: 2000
format: ${VCF_TEST_CHUNK_FORMAT}
compression: zstd
log:
  level: debug
  encoding: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.ChunkSize)
	assert.Equal(t, "arrow", cfg.Format)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultQueueDepth, cfg.QueueDepth)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: -1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := DefaultConfig()
	cfg.ChunkSize = 42
	cfg.MissingSeparatorPolicy = PolicyRecord
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("VCF_A", "1")
	assert.Equal(t, "x=1 y=", substituteEnvVars("x=${VCF_A} y=${VCF_UNSET_VAR}"))
	assert.Equal(t, "open ${brace", substituteEnvVars("open ${brace"))
}
