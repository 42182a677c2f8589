package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Bootstrap modes for acquiring an NSE session.
const (
	BootstrapBrowser = "browser"
	BootstrapHTTP    = "http"
)

// Config holds downloader configuration.
type Config struct {
	BaseURL     string
	Symbol      string
	Instrument  string
	Years       []int
	TestMode    bool
	Headless    bool
	Bootstrap   string // browser or http
	Delay       time.Duration
	Timeout     time.Duration
	MetaTimeout time.Duration
	OutputRoot  string
	UserAgent   string
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns the defaults used by the original NSE workflow.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://www.nseindia.com",
		Symbol:      "NIFTY",
		Instrument:  "FUTIDX",
		TestMode:    false,
		Headless:    true,
		Bootstrap:   BootstrapBrowser,
		Delay:       2 * time.Second,
		Timeout:     30 * time.Second,
		MetaTimeout: 10 * time.Second,
		OutputRoot:  "nse_data",
		UserAgent:   "",
		MetricsAddr: "",
		Verbose:     false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if c.Instrument == "" {
		return fmt.Errorf("instrument cannot be empty")
	}
	if len(c.Years) == 0 {
		return fmt.Errorf("at least one year is required")
	}
	currentYear := time.Now().Year()
	for _, year := range c.Years {
		if year < 2000 || year > currentYear {
			return fmt.Errorf("year %d out of range (2000..%d)", year, currentYear)
		}
	}
	if c.Bootstrap != BootstrapBrowser && c.Bootstrap != BootstrapHTTP {
		return fmt.Errorf("bootstrap mode must be %s or %s", BootstrapBrowser, BootstrapHTTP)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MetaTimeout <= 0 {
		return fmt.Errorf("metadata timeout must be positive")
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("output root cannot be empty")
	}

	return nil
}

// EnvInt reads an integer environment variable. The second return reports
// whether the variable was set.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, true, nil
}

// EnvString reads a string environment variable.
func EnvString(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}
