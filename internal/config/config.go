package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	CBRURL     string
	CBREnabled bool

	RedisAddr     string
	RedisPassword string

	KafkaBrokers    []string
	KafkaNudgeTopic string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	ScheduleClustering string
	ScheduleNudges     string

	Analytics Analytics
}

// Analytics holds the thresholds of the analytics pipeline
type Analytics struct {
	MinFeatureTransactions  int
	MinForecastTransactions int

	Clusters              int
	ClusterInits          int
	ClusterMaxIter        int
	ClusterSeed           int64
	WeekendRatioThreshold float64
	PersonaConfidence     float64

	ForecastHorizonDays   int
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	Changepoints          int
	ChangepointRange      float64
	WeeklyFourierOrder    int
	IntervalWidth         float64

	CriticalBalance   float64
	LowBalance        float64
	OverspendRatio    float64
	SavingsThreshold  float64
	SavingsBuffer     float64
	SubscriptionCount int

	RecentWindowDays int
	HistoryStartDays int
	HistoryEndDays   int
}

// NewConfig loads configuration from a .env file, if present, and the environment
func NewConfig() (*Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		DBConn:   getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=insights sslmode=disable"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		CBRURL:     getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		CBREnabled: getEnvBool("CBR_ENABLED", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers:    getEnvList("KAFKA_BROKERS"),
		KafkaNudgeTopic: getEnv("KAFKA_NUDGE_TOPIC", "insights.nudges"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "insights@example.com"),

		ScheduleClustering: getEnv("SCHEDULE_CLUSTERING", "0 2 * * *"),
		ScheduleNudges:     getEnv("SCHEDULE_NUDGES", "0 6 * * *"),

		Analytics: Analytics{
			MinFeatureTransactions:  getEnvInt("MIN_FEATURE_TRANSACTIONS", 10),
			MinForecastTransactions: getEnvInt("MIN_FORECAST_TRANSACTIONS", 30),

			Clusters:              getEnvInt("CLUSTERS", 5),
			ClusterInits:          getEnvInt("CLUSTER_INITS", 10),
			ClusterMaxIter:        getEnvInt("CLUSTER_MAX_ITER", 300),
			ClusterSeed:           int64(getEnvInt("CLUSTER_SEED", 42)),
			WeekendRatioThreshold: getEnvFloat("WEEKEND_RATIO_THRESHOLD", 0.4),
			PersonaConfidence:     getEnvFloat("PERSONA_CONFIDENCE", 0.85),

			ForecastHorizonDays:   getEnvInt("FORECAST_HORIZON_DAYS", 30),
			ChangepointPriorScale: getEnvFloat("CHANGEPOINT_PRIOR_SCALE", 0.05),
			SeasonalityPriorScale: getEnvFloat("SEASONALITY_PRIOR_SCALE", 10),
			Changepoints:          getEnvInt("CHANGEPOINTS", 25),
			ChangepointRange:      getEnvFloat("CHANGEPOINT_RANGE", 0.8),
			WeeklyFourierOrder:    getEnvInt("WEEKLY_FOURIER_ORDER", 3),
			IntervalWidth:         getEnvFloat("INTERVAL_WIDTH", 0.95),

			CriticalBalance:   getEnvFloat("CRITICAL_BALANCE", 100),
			LowBalance:        getEnvFloat("LOW_BALANCE", 500),
			OverspendRatio:    getEnvFloat("OVERSPEND_RATIO", 1.5),
			SavingsThreshold:  getEnvFloat("SAVINGS_THRESHOLD", 2000),
			SavingsBuffer:     getEnvFloat("SAVINGS_BUFFER", 1500),
			SubscriptionCount: getEnvInt("SUBSCRIPTION_COUNT", 5),

			RecentWindowDays: getEnvInt("RECENT_WINDOW_DAYS", 7),
			HistoryStartDays: getEnvInt("HISTORY_START_DAYS", 60),
			HistoryEndDays:   getEnvInt("HISTORY_END_DAYS", 30),
		},
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.Analytics.LowBalance < cfg.Analytics.CriticalBalance {
		return nil, fmt.Errorf("LOW_BALANCE must not be below CRITICAL_BALANCE")
	}
	if cfg.Analytics.HistoryStartDays <= cfg.Analytics.HistoryEndDays {
		return nil, fmt.Errorf("HISTORY_START_DAYS must be greater than HISTORY_END_DAYS")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
