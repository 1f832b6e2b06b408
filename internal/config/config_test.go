package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "0 2 * * *", cfg.ScheduleClustering)
	assert.Equal(t, "0 6 * * *", cfg.ScheduleNudges)
	assert.Empty(t, cfg.KafkaBrokers)

	a := cfg.Analytics
	assert.Equal(t, 10, a.MinFeatureTransactions)
	assert.Equal(t, 30, a.MinForecastTransactions)
	assert.Equal(t, 5, a.Clusters)
	assert.Equal(t, int64(42), a.ClusterSeed)
	assert.Equal(t, 0.85, a.PersonaConfidence)
	assert.Equal(t, 0.95, a.IntervalWidth)
	assert.Equal(t, 100.0, a.CriticalBalance)
	assert.Equal(t, 500.0, a.LowBalance)
	assert.Equal(t, 7, a.RecentWindowDays)
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CBR_ENABLED", "false")
	t.Setenv("CLUSTERS", "3")
	t.Setenv("OVERSPEND_RATIO", "2.5")
	t.Setenv("FORECAST_HORIZON_DAYS", "not-a-number")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.CBREnabled)
	assert.Equal(t, 3, cfg.Analytics.Clusters)
	assert.Equal(t, 2.5, cfg.Analytics.OverspendRatio)
	assert.Equal(t, 30, cfg.Analytics.ForecastHorizonDays)
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"empty db", map[string]string{"DB_CONN": ""}},
		{"low below critical", map[string]string{"LOW_BALANCE": "50"}},
		{"inverted history window", map[string]string{"HISTORY_START_DAYS": "20"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}
