package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithDefaults_FillsEmptyFields(t *testing.T) {
	cfg := Config{Gemini: Gemini{APIKey: "key", Model: "custom-model"}}.WithDefaults()

	assert.Equal(t, "key", cfg.Gemini.APIKey)
	assert.Equal(t, "custom-model", cfg.Gemini.Model)
	assert.Equal(t, DefaultGeminiBaseURL, cfg.Gemini.BaseURL)
	assert.Equal(t, DefaultEmbeddingModel, cfg.Gemini.EmbeddingModel)
	assert.Equal(t, DefaultAIFallbackMessage, cfg.Gemini.FallbackMessage)
	assert.Equal(t, DefaultGoogleTokenURL, cfg.Google.TokenURL)
	assert.Equal(t, DefaultGmailEndpoint, cfg.Google.GmailEndpoint)
	assert.Equal(t, DefaultSlackAPIURL, cfg.Slack.APIURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestWithDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Slack:       Slack{APIURL: "http://localhost/api/"},
		HTTPTimeout: time.Second,
	}.WithDefaults()

	assert.Equal(t, "http://localhost/api/", cfg.Slack.APIURL)
	assert.Equal(t, time.Second, cfg.HTTPTimeout)
}

func TestWithDefaults_Runtime(t *testing.T) {
	cfg := Config{Runtime: Runtime{DatabaseURL: "postgres://db/flowforge", Port: 8080}}.WithDefaults()

	assert.Equal(t, "postgres://db/flowforge", cfg.Runtime.DatabaseURL)
	assert.Equal(t, 8080, cfg.Runtime.Port)
	assert.Equal(t, DefaultEventBus, cfg.Runtime.EventBus)
	assert.Equal(t, DefaultLogLevel, cfg.Runtime.LogLevel)
	assert.Empty(t, cfg.Runtime.RedisURL)
}
