package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/sbm69/internal/report"
)

// Config holds application configuration
type Config struct {
	LogLevel        logrus.Level  `json:"log_level" default:"4"`
	ScanTimeout     time.Duration `json:"scan_timeout" default:"10s"`
	ConnectTimeout  time.Duration `json:"connect_timeout" default:"30s"`
	ConnectAttempts int           `json:"connect_attempts" default:"2"`
	FetchTimeout    time.Duration `json:"fetch_timeout" default:"120s"`
	DeviceName      string        `json:"device_name" default:"SBM69"`
	OutputFormat    string        `json:"output_format" default:"csv"` // csv, json, yaml
	Strict          bool          `json:"strict" default:"false"`

	// PartialOnTimeout keeps what was received when the device never disconnects
	PartialOnTimeout bool `json:"partial_on_timeout" default:"false"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Validate checks that the values can drive a fetch
func (c *Config) Validate() error {
	var errs []error
	if c.ScanTimeout <= 0 {
		errs = append(errs, fmt.Errorf("scan timeout must be positive, got %s", c.ScanTimeout))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect timeout must be positive, got %s", c.ConnectTimeout))
	}
	if c.ConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("connect attempts must be at least 1, got %d", c.ConnectAttempts))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout))
	}
	if strings.TrimSpace(c.DeviceName) == "" {
		errs = append(errs, errors.New("device name must not be empty"))
	}
	if _, err := report.ParseFormat(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Format returns the parsed output format
func (c *Config) Format() report.Format {
	f, err := report.ParseFormat(c.OutputFormat)
	if err != nil {
		return report.FormatCSV
	}
	return f
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
