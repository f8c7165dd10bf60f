// Package config holds the provider configuration injected into node adapters.
package config

import "time"

const (
	DefaultGeminiBaseURL      = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel        = "gemini-2.5-flash"
	DefaultEmbeddingModel     = "text-embedding-004"
	DefaultGoogleTokenURL     = "https://oauth2.googleapis.com/token"
	DefaultGmailEndpoint      = "https://gmail.googleapis.com/"
	DefaultSlackAPIURL        = "https://slack.com/api/"
	DefaultAIFallbackMessage  = "AI is temporarily unavailable due to rate limits. Please try again in a moment."
	DefaultHTTPRequestTimeout = 30 * time.Second
	DefaultDatabaseURL        = "file://./data"
	DefaultEventBus           = "gochannel"
	DefaultPort               = 3000
	DefaultLogLevel           = "info"
)

// Config is the explicit provider configuration for a process. It replaces
// ambient environment lookups inside adapters.
type Config struct {
	Gemini Gemini
	Google Google
	Slack  Slack

	Runtime Runtime

	HTTPTimeout time.Duration
}

// Gemini configures the generative text and embedding provider.
type Gemini struct {
	APIKey          string
	BaseURL         string
	Model           string
	EmbeddingModel  string
	FallbackMessage string
}

// Google configures the OAuth client used for email credentials.
type Google struct {
	ClientID      string
	ClientSecret  string
	TokenURL      string
	GmailEndpoint string
}

// Slack configures the chat provider.
type Slack struct {
	APIURL        string
	SigningSecret string
}

// Runtime configures the storage, event bus and API surfaces of a process.
type Runtime struct {
	DatabaseURL  string
	EventBus     string
	KafkaBrokers []string
	RedisURL     string
	Port         int
	LogLevel     string
	Tracing      bool
}

// Default returns a configuration populated with public provider endpoints.
func Default() Config {
	return Config{
		Gemini: Gemini{
			BaseURL:         DefaultGeminiBaseURL,
			Model:           DefaultGeminiModel,
			EmbeddingModel:  DefaultEmbeddingModel,
			FallbackMessage: DefaultAIFallbackMessage,
		},
		Google: Google{
			TokenURL:      DefaultGoogleTokenURL,
			GmailEndpoint: DefaultGmailEndpoint,
		},
		Slack: Slack{
			APIURL: DefaultSlackAPIURL,
		},
		Runtime: Runtime{
			DatabaseURL: DefaultDatabaseURL,
			EventBus:    DefaultEventBus,
			Port:        DefaultPort,
			LogLevel:    DefaultLogLevel,
		},
		HTTPTimeout: DefaultHTTPRequestTimeout,
	}
}

// WithDefaults fills every empty field with its default value.
func (c Config) WithDefaults() Config {
	def := Default()

	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = def.Gemini.BaseURL
	}

	if c.Gemini.Model == "" {
		c.Gemini.Model = def.Gemini.Model
	}

	if c.Gemini.EmbeddingModel == "" {
		c.Gemini.EmbeddingModel = def.Gemini.EmbeddingModel
	}

	if c.Gemini.FallbackMessage == "" {
		c.Gemini.FallbackMessage = def.Gemini.FallbackMessage
	}

	if c.Google.TokenURL == "" {
		c.Google.TokenURL = def.Google.TokenURL
	}

	if c.Google.GmailEndpoint == "" {
		c.Google.GmailEndpoint = def.Google.GmailEndpoint
	}

	if c.Slack.APIURL == "" {
		c.Slack.APIURL = def.Slack.APIURL
	}

	if c.Runtime.DatabaseURL == "" {
		c.Runtime.DatabaseURL = def.Runtime.DatabaseURL
	}

	if c.Runtime.EventBus == "" {
		c.Runtime.EventBus = def.Runtime.EventBus
	}

	if c.Runtime.Port <= 0 {
		c.Runtime.Port = def.Runtime.Port
	}

	if c.Runtime.LogLevel == "" {
		c.Runtime.LogLevel = def.Runtime.LogLevel
	}

	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = def.HTTPTimeout
	}

	return c
}
