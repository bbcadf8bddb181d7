// Package config loads runtime settings for the invoice processor from the
// environment. A .env file in the working directory is honored when present.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all recognized settings.
type Config struct {
	// SubjectFilter selects which unread emails are candidates for processing.
	SubjectFilter string `env:"INVOICEFLOW_SUBJECT" envDefault:"Viable: Trial Document"`

	// ProcessedLabel is the Gmail label applied once an email has been processed.
	ProcessedLabel string `env:"INVOICEFLOW_LABEL" envDefault:"Processed"`

	// DriveFolder is the Drive folder that receives uploaded attachments.
	DriveFolder string `env:"INVOICEFLOW_DRIVE_FOLDER" envDefault:"Viable Test Documents"`

	// SpreadsheetID is the target spreadsheet for the processing log.
	SpreadsheetID string `env:"INVOICEFLOW_SPREADSHEET_ID"`

	// ScheduleHours is the polling interval for watch mode.
	ScheduleHours int `env:"INVOICEFLOW_SCHEDULE_HOURS" envDefault:"3"`

	// AllowedTypes is the attachment MIME type allow-list. Anything else is skipped.
	AllowedTypes []string `env:"INVOICEFLOW_ALLOWED_TYPES" envSeparator:"," envDefault:"application/pdf,image/jpeg,image/png,message/rfc822"`

	GroqAPIKey  string `env:"GROQ_API_KEY"`
	GroqModel   string `env:"GROQ_MODEL" envDefault:"meta-llama/llama-4-scout-17b-16e-instruct"`
	GroqBaseURL string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	LogLevel    string `env:"INVOICEFLOW_LOG_LEVEL" envDefault:"info"`
	MetricsAddr string `env:"INVOICEFLOW_METRICS_ADDR" envDefault:":9090"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that have no usable zero value.
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return fmt.Errorf("INVOICEFLOW_SPREADSHEET_ID is required")
	}
	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	if c.ScheduleHours <= 0 {
		return fmt.Errorf("schedule interval must be positive, got %d", c.ScheduleHours)
	}
	if len(c.AllowedTypes) == 0 {
		return fmt.Errorf("at least one allowed MIME type is required")
	}
	return nil
}
