// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/quantum-portfolio/internal/modules/analytics"
	"github.com/aristath/quantum-portfolio/internal/modules/optimization"
	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the run history database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Pipeline     PipelineConfig
	Analytics    AnalyticsConfig
	Optimization OptimizationConfig
	History      HistoryConfig
	Schedule     ScheduleConfig
	S3           S3Config
}

// PipelineConfig holds orchestrator defaults
type PipelineConfig struct {
	Mode           string
	FailurePolicy  string
	RiskAversion   float64
	MinPricePoints int
	Timeout        time.Duration
}

// AnalyticsConfig holds the metric parameters
type AnalyticsConfig struct {
	RiskFreeRate    float64
	PeriodsPerYear  float64
	ConfidenceLevel float64
	VaRConvention   string
}

// OptimizationConfig holds backend settings
type OptimizationConfig struct {
	CombinatorialSolver string
	QAOALayers          int
	ClassicalStrategy   string
}

// HistoryConfig holds the Yahoo client settings
type HistoryConfig struct {
	Period     string
	MaxRetries int
}

// ScheduleConfig holds the watchlist job settings. An empty Cron disables it.
type ScheduleConfig struct {
	Cron   string
	Assets []string
}

// S3Config holds report archive settings. An empty Bucket disables it.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional, for S3-compatible storage
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Enabled reports whether report archiving is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Pipeline: PipelineConfig{
			Mode:           getEnv("OPTIMIZER_MODE", string(pipeline.ModeDual)),
			FailurePolicy:  getEnv("PARTIAL_FAILURE_POLICY", string(pipeline.PolicyFailFast)),
			RiskAversion:   getEnvAsFloat("RISK_AVERSION", pipeline.DefaultRiskAversion),
			MinPricePoints: getEnvAsInt("MIN_PRICE_POINTS", 30),
			Timeout:        time.Duration(getEnvAsInt("PIPELINE_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Analytics: AnalyticsConfig{
			RiskFreeRate:    getEnvAsFloat("RISK_FREE_RATE", analytics.DefaultRiskFreeRate),
			PeriodsPerYear:  getEnvAsFloat("PERIODS_PER_YEAR", analytics.DefaultPeriodsPerYear),
			ConfidenceLevel: getEnvAsFloat("VAR_CONFIDENCE", analytics.DefaultConfidenceLevel),
			VaRConvention:   getEnv("VAR_CONVENTION", string(analytics.VaRLoss)),
		},
		Optimization: OptimizationConfig{
			CombinatorialSolver: getEnv("COMBINATORIAL_SOLVER", optimization.SolverAuto),
			QAOALayers:          getEnvAsInt("QAOA_LAYERS", optimization.DefaultQAOALayers),
			ClassicalStrategy:   getEnv("CLASSICAL_STRATEGY", optimization.StrategyMaxSharpe),
		},
		History: HistoryConfig{
			Period:     getEnv("HISTORY_PERIOD", "1y"),
			MaxRetries: getEnvAsInt("HISTORY_MAX_RETRIES", 3),
		},
		Schedule: ScheduleConfig{
			Cron:   getEnv("SCHEDULE_CRON", ""),
			Assets: getEnvAsList("SCHEDULE_ASSETS"),
		},
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("S3_PREFIX", "reports"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if _, err := pipeline.ParseMode(c.Pipeline.Mode, pipeline.ModeDual); err != nil {
		return err
	}
	if _, err := pipeline.ParseFailurePolicy(c.Pipeline.FailurePolicy, pipeline.PolicyFailFast); err != nil {
		return err
	}
	if c.Pipeline.RiskAversion < 0 {
		return fmt.Errorf("RISK_AVERSION must be non-negative, got %v", c.Pipeline.RiskAversion)
	}
	if c.Pipeline.MinPricePoints < pipeline.DefaultMinPricePoints {
		return fmt.Errorf("MIN_PRICE_POINTS must be at least %d, got %d", pipeline.DefaultMinPricePoints, c.Pipeline.MinPricePoints)
	}
	if c.Pipeline.Timeout < 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT_SECONDS must be non-negative")
	}

	if err := c.AnalyticsSettings().Validate(); err != nil {
		return err
	}

	switch c.Optimization.CombinatorialSolver {
	case optimization.SolverAuto, optimization.SolverQAOA, optimization.SolverExact:
	default:
		return fmt.Errorf("unknown COMBINATORIAL_SOLVER: %s", c.Optimization.CombinatorialSolver)
	}
	if c.Optimization.QAOALayers < 1 {
		return fmt.Errorf("QAOA_LAYERS must be positive, got %d", c.Optimization.QAOALayers)
	}
	switch c.Optimization.ClassicalStrategy {
	case optimization.StrategyMaxSharpe, optimization.StrategyMinVolatility, optimization.StrategyMeanVariance:
	default:
		return fmt.Errorf("unknown CLASSICAL_STRATEGY: %s", c.Optimization.ClassicalStrategy)
	}

	if c.History.MaxRetries < 1 {
		return fmt.Errorf("HISTORY_MAX_RETRIES must be positive, got %d", c.History.MaxRetries)
	}
	if c.Schedule.Cron != "" && len(c.Schedule.Assets) == 0 {
		return fmt.Errorf("SCHEDULE_ASSETS is required when SCHEDULE_CRON is set")
	}

	return nil
}

// AnalyticsSettings converts the analytics section to analytics.Config
func (c *Config) AnalyticsSettings() analytics.Config {
	return analytics.Config{
		RiskFreeRate:    c.Analytics.RiskFreeRate,
		PeriodsPerYear:  c.Analytics.PeriodsPerYear,
		ConfidenceLevel: c.Analytics.ConfidenceLevel,
		VaRConvention:   analytics.VaRConvention(strings.ToLower(c.Analytics.VaRConvention)),
	}
}

// PipelineSettings converts the pipeline section to pipeline.Config
func (c *Config) PipelineSettings() pipeline.Config {
	mode, _ := pipeline.ParseMode(c.Pipeline.Mode, pipeline.ModeDual)
	policy, _ := pipeline.ParseFailurePolicy(c.Pipeline.FailurePolicy, pipeline.PolicyFailFast)
	return pipeline.Config{
		Mode:           mode,
		Policy:         policy,
		RiskAversion:   c.Pipeline.RiskAversion,
		MinPricePoints: c.Pipeline.MinPricePoints,
		Timeout:        c.Pipeline.Timeout,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping empty entries
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
