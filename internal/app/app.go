// Package app wires configuration into a running service stack shared by the
// API server and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-insights/internal/cache"
	"github.com/Dan9191/bank-insights/internal/config"
	"github.com/Dan9191/bank-insights/internal/integrations/cbr"
	"github.com/Dan9191/bank-insights/internal/notify"
	"github.com/Dan9191/bank-insights/internal/repository"
	"github.com/Dan9191/bank-insights/internal/service"
)

// App owns the open connections behind a Service
type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	Repo    *repository.Repository
	Service *service.Service

	db    *sql.DB
	redis *redis.Client
	kafka *notify.KafkaPublisher
}

// NewLogger builds the JSON logger at the configured level, falling back to info
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// New connects to postgres, applies the schema and attaches whichever optional
// integrations are configured
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a := &App{Config: cfg, Log: logger, db: db, Repo: repository.NewRepository(db)}
	if err := a.Repo.InitSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}

	var deps service.Dependencies

	if cfg.RedisAddr != "" {
		a.redis, err = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Locker = cache.NewRedisLocker(a.redis, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, run locks are local to this process")
	}

	var notifiers []notify.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		a.kafka, err = notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaNudgeTopic, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifiers = append(notifiers, a.kafka)
	}
	if cfg.SMTPHost != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(notify.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			SenderEmail: cfg.SenderEmail,
		}, logger))
	}
	deps.Deliverer = notify.NewMulti(notifiers...)

	if cfg.CBREnabled {
		deps.Rates = cbr.NewCBRClient(cfg.CBRURL, logger)
	}

	a.Service = service.NewService(a.Repo, logger, cfg, deps)
	logger.Infof("Service ready with %d notifiers", len(notifiers))
	return a, nil
}

// Close releases every connection; errors are logged
func (a *App) Close() {
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.Log.Errorf("Failed to close kafka writer: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Errorf("Failed to close redis client: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.Log.Errorf("Failed to close database: %v", err)
	}
}
