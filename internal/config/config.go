/*
Package config loads environment defaults for the comicepub command.

Every setting can be overridden by a command-line flag; the environment
only changes the flag defaults.

	cfg, err := config.Load()
	if err != nil {
	    return err
	}
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every environment variable name.
const Prefix = "COMICEPUB_"

// Config holds the environment-backed defaults.
type Config struct {
	// Book metadata
	Language  string `env:"LANGUAGE"  envDefault:"en"`
	Direction string `env:"DIRECTION" envDefault:"ltr"`

	// Archive
	CompressionLevel int `env:"COMPRESSION_LEVEL" envDefault:"9"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Scraping. ChapterURL is a template containing %d for the chapter
	// number.
	ChapterURL      string        `env:"CHAPTER_URL"`
	ScrapeDir       string        `env:"SCRAPE_DIR"       envDefault:"scraped"`
	OutputDir       string        `env:"OUTPUT_DIR"       envDefault:"output"`
	Concurrency     int           `env:"CONCURRENCY"      envDefault:"4"`
	RequestInterval time.Duration `env:"REQUEST_INTERVAL" envDefault:"250ms"`
	UserAgent       string        `env:"USER_AGENT"       envDefault:"comicepub/1.0"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT"     envDefault:"30s"`

	// Image processing
	JPEGQuality int `env:"JPEG_QUALITY" envDefault:"90"`
}

// Load parses COMICEPUB_* environment variables into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return fmt.Errorf("config: %sCOMPRESSION_LEVEL must be 0-9, got %d", Prefix, c.CompressionLevel)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("config: %sCONCURRENCY must be at least 1, got %d", Prefix, c.Concurrency)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("config: %sJPEG_QUALITY must be 1-100, got %d", Prefix, c.JPEGQuality)
	}
	if c.RequestInterval < 0 {
		return fmt.Errorf("config: %sREQUEST_INTERVAL must not be negative", Prefix)
	}
	return nil
}
