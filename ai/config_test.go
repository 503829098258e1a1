package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ExtractorHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.ExtractorModel)
	assert.Equal(t, 8, cfg.MaxKeywords)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ExtractorHost)
		assert.Equal(t, 8, cfg.MaxKeywords)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ExtractorHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithExtractorHost("http://extract:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://extract:9090/v1", cfg.ExtractorHost)
	})

	t.Run("with custom models and keyword cap", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithExtractorModel("gpt-4o-mini"),
			WithMaxKeywords(12),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ExtractorModel)
		assert.Equal(t, 12, cfg.MaxKeywords)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{"already has /v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing /v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty host", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host, ExtractorHost: tt.host}

			cfg.Normalize()

			assert.Equal(t, tt.expected, cfg.EmbeddingHost)
			assert.Equal(t, tt.expected, cfg.ExtractorHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			EmbeddingHost:  "http://localhost:11434",
			ExtractorHost:  "http://localhost:11434",
			EmbeddingModel: "embeddinggemma",
			ExtractorModel: "qwen2.5:3b",
			MaxKeywords:    8,
		}
	}

	t.Run("valid config normalizes hosts", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ExtractorHost)
	})

	t.Run("missing fields", func(t *testing.T) {
		cfg := valid()
		cfg.EmbeddingHost = ""
		assert.ErrorContains(t, cfg.Validate(), "EmbeddingHost")

		cfg = valid()
		cfg.ExtractorHost = ""
		assert.ErrorContains(t, cfg.Validate(), "ExtractorHost")

		cfg = valid()
		cfg.EmbeddingModel = ""
		assert.ErrorContains(t, cfg.Validate(), "EmbeddingModel")

		cfg = valid()
		cfg.ExtractorModel = ""
		assert.ErrorContains(t, cfg.Validate(), "ExtractorModel")
	})

	t.Run("keyword cap bounds", func(t *testing.T) {
		cfg := valid()
		cfg.MaxKeywords = 0
		assert.ErrorContains(t, cfg.Validate(), "MaxKeywords")

		cfg.MaxKeywords = 65
		assert.ErrorContains(t, cfg.Validate(), "MaxKeywords")

		cfg.MaxKeywords = 1
		assert.NoError(t, cfg.Validate())

		cfg.MaxKeywords = 64
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfigValidate_Integration(t *testing.T) {
	require.NoError(t, NewConfig().Validate())
	require.NoError(t, DefaultConfig().Validate())
}
