package config

import (
	"fmt"
	"os"
	"strconv"

	"gopanel/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Analysis  AnalysisConfig
	Limits    LimitsConfig
	Data      DataConfig
	Profiling ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// AnalysisConfig holds the statistical settings of a run
type AnalysisConfig struct {
	SignificanceLevel float64
	HistogramBins     int
}

// LimitsConfig bounds the resources the HTTP server may use
type LimitsConfig struct {
	MaxConcurrentRuns int
	ReportCacheSize   int
	MaxUploadMB       int
}

// DataConfig holds data ingestion settings
type DataConfig struct {
	// ExcelSheet is read instead of the first sheet when set
	ExcelSheet string
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// MaxUploadBytes converts the upload limit to bytes
func (l LimitsConfig) MaxUploadBytes() int64 {
	return int64(l.MaxUploadMB) << 20
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080", GinMode: "release"},
		Analysis:  AnalysisConfig{SignificanceLevel: 0.05, HistogramBins: 20},
		Limits:    LimitsConfig{MaxConcurrentRuns: 4, ReportCacheSize: 32, MaxUploadMB: 32},
		Profiling: ProfilingConfig{Port: "6060"},
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	def := Default()
	config := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", def.Server.Port),
			GinMode: getEnvOrDefault("GIN_MODE", def.Server.GinMode),
		},
		Analysis: AnalysisConfig{
			SignificanceLevel: getEnvFloatOrDefault("SIGNIFICANCE_LEVEL", def.Analysis.SignificanceLevel),
			HistogramBins:     getEnvIntOrDefault("HISTOGRAM_BINS", def.Analysis.HistogramBins),
		},
		Limits: LimitsConfig{
			MaxConcurrentRuns: getEnvIntOrDefault("MAX_CONCURRENT_RUNS", def.Limits.MaxConcurrentRuns),
			ReportCacheSize:   getEnvIntOrDefault("REPORT_CACHE_SIZE", def.Limits.ReportCacheSize),
			MaxUploadMB:       getEnvIntOrDefault("MAX_UPLOAD_MB", def.Limits.MaxUploadMB),
		},
		Data: DataConfig{
			ExcelSheet: getEnvOrDefault("EXCEL_SHEET", ""),
		},
		Profiling: ProfilingConfig{
			Port:    getEnvOrDefault("PPROF_PORT", def.Profiling.Port),
			Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate rejects settings no run could use
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if a := c.Analysis.SignificanceLevel; !(a > 0 && a < 1) {
		return errors.ConfigInvalid(fmt.Sprintf("SIGNIFICANCE_LEVEL must be in (0, 1), got %v", a))
	}
	if c.Analysis.HistogramBins <= 0 {
		return errors.ConfigInvalid("HISTOGRAM_BINS must be positive")
	}
	if c.Limits.MaxConcurrentRuns <= 0 {
		return errors.ConfigInvalid("MAX_CONCURRENT_RUNS must be positive")
	}
	if c.Limits.ReportCacheSize <= 0 {
		return errors.ConfigInvalid("REPORT_CACHE_SIZE must be positive")
	}
	if c.Limits.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
