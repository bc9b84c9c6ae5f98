package config

import (
	"testing"
	"time"

	"github.com/aristath/quantum-portfolio/internal/modules/analytics"
	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "dual", cfg.Pipeline.Mode)
	assert.Equal(t, "fail_fast", cfg.Pipeline.FailurePolicy)
	assert.Equal(t, 0.5, cfg.Pipeline.RiskAversion)
	assert.Equal(t, 30, cfg.Pipeline.MinPricePoints)
	assert.Equal(t, 120*time.Second, cfg.Pipeline.Timeout)
	assert.Equal(t, 0.02, cfg.Analytics.RiskFreeRate)
	assert.Equal(t, 252.0, cfg.Analytics.PeriodsPerYear)
	assert.Equal(t, 0.95, cfg.Analytics.ConfidenceLevel)
	assert.Equal(t, "loss", cfg.Analytics.VaRConvention)
	assert.Equal(t, "auto", cfg.Optimization.CombinatorialSolver)
	assert.Equal(t, 2, cfg.Optimization.QAOALayers)
	assert.Equal(t, "max_sharpe", cfg.Optimization.ClassicalStrategy)
	assert.Equal(t, "1y", cfg.History.Period)
	assert.Equal(t, 3, cfg.History.MaxRetries)
	assert.False(t, cfg.S3.Enabled())
	assert.Empty(t, cfg.Schedule.Cron)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("OPTIMIZER_MODE", "single")
	t.Setenv("PARTIAL_FAILURE_POLICY", "report_partial")
	t.Setenv("RISK_FREE_RATE", "0.035")
	t.Setenv("VAR_CONFIDENCE", "0.99")
	t.Setenv("VAR_CONVENTION", "absolute")
	t.Setenv("PIPELINE_TIMEOUT_SECONDS", "15")
	t.Setenv("SCHEDULE_CRON", "0 0 22 * * 1-5")
	t.Setenv("SCHEDULE_ASSETS", "AAPL, MSFT,,GOOGL ")
	t.Setenv("S3_BUCKET", "reports-bucket")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.Timeout)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, cfg.Schedule.Assets)
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, "reports", cfg.S3.Prefix)

	p := cfg.PipelineSettings()
	assert.Equal(t, pipeline.ModeSingle, p.Mode)
	assert.Equal(t, pipeline.PolicyReportPartial, p.Policy)

	a := cfg.AnalyticsSettings()
	assert.Equal(t, 0.035, a.RiskFreeRate)
	assert.Equal(t, 0.99, a.ConfidenceLevel)
	assert.Equal(t, analytics.VaRAbsolute, a.VaRConvention)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"OPTIMIZER_MODE", "triple"},
		{"PARTIAL_FAILURE_POLICY", "ignore"},
		{"VAR_CONFIDENCE", "1.5"},
		{"VAR_CONVENTION", "signed"},
		{"PERIODS_PER_YEAR", "0"},
		{"COMBINATORIAL_SOLVER", "annealer"},
		{"QAOA_LAYERS", "0"},
		{"CLASSICAL_STRATEGY", "hrp"},
		{"MIN_PRICE_POINTS", "2"},
		{"HISTORY_MAX_RETRIES", "0"},
		{"SCHEDULE_CRON", "@daily"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	t.Setenv("TEST_FLOAT", "1.25")
	t.Setenv("TEST_BOOL", "true")

	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))
	assert.Equal(t, 1.25, getEnvAsFloat("TEST_FLOAT", 0))
	assert.True(t, getEnvAsBool("TEST_BOOL", false))
	assert.Equal(t, "fallback", getEnv("TEST_UNSET_KEY", "fallback"))
	assert.Nil(t, getEnvAsList("TEST_UNSET_KEY"))
}
