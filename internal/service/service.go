package service

import (
	"context"
	"time"

	"github.com/Dan9191/bank-insights/internal/analytics/features"
	"github.com/Dan9191/bank-insights/internal/analytics/forecast"
	"github.com/Dan9191/bank-insights/internal/analytics/nudge"
	"github.com/Dan9191/bank-insights/internal/analytics/pattern"
	"github.com/Dan9191/bank-insights/internal/analytics/persona"
	"github.com/Dan9191/bank-insights/internal/cache"
	"github.com/Dan9191/bank-insights/internal/config"
	"github.com/Dan9191/bank-insights/internal/metrics"
	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/notify"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the service reads transactions from and writes
// derived results to
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateAccount(ctx context.Context, account *models.Account) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListUserAccounts(ctx context.Context, userID int64) ([]models.Account, error)
	GetAccount(ctx context.Context, userID, accountID int64) (*models.Account, error)
	ListTransactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error)
	InsertTransactions(ctx context.Context, txns []models.Transaction) error

	ReplacePersonaAssignments(ctx context.Context, assignments []models.PersonaAssignment) error
	GetPersonaAssignment(ctx context.Context, userID int64) (*models.PersonaAssignment, error)
	ReplaceForecast(ctx context.Context, userID, accountID int64, from time.Time, points []models.ForecastPoint) error
	ListForecast(ctx context.Context, userID, accountID int64, from time.Time) ([]models.ForecastPoint, error)
	ReplacePatterns(ctx context.Context, userID int64, patterns []models.SpendingPattern) error
	ListPatterns(ctx context.Context, userID int64) ([]models.SpendingPattern, error)
	InsertNudges(ctx context.Context, nudges []models.Nudge) error
	ListNudges(ctx context.Context, userID int64, unreadOnly bool) ([]models.Nudge, error)
	MarkNudgeRead(ctx context.Context, userID, nudgeID int64) error
}

// Deliverer fans new nudges out to the configured notifiers
type Deliverer interface {
	Deliver(ctx context.Context, user models.User, nudges []models.Nudge) []notify.Failure
}

// RateProvider supplies the current key rate in percent
type RateProvider interface {
	KeyRate(ctx context.Context) (float64, error)
}

// Locker serializes runs that must not overlap
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Dependencies are the optional collaborators of the service. Nil fields get
// an in-process locker, a fresh metrics registry and no notifiers.
type Dependencies struct {
	Deliverer Deliverer
	Rates     RateProvider
	Locker    Locker
	Metrics   *metrics.Metrics
}

const (
	clusteringLockTTL = 30 * time.Minute
	accountLockTTL    = 5 * time.Minute
)

// Service handles business logic
type Service struct {
	repo   Store
	log    *logrus.Logger
	config config.Analytics

	extractor  *features.Extractor
	classifier *persona.Classifier
	forecaster *forecast.Engine
	nudges     *nudge.Engine
	patterns   *pattern.Detector

	deliverer Deliverer
	rates     RateProvider
	locker    Locker
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService initializes a new service
func NewService(repo Store, log *logrus.Logger, cfg *config.Config, deps Dependencies) *Service {
	a := cfg.Analytics
	s := &Service{
		repo:      repo,
		log:       log,
		config:    a,
		extractor: features.NewExtractor(a.MinFeatureTransactions),
		classifier: persona.NewClassifier(persona.Config{
			Clusters:              a.Clusters,
			Inits:                 a.ClusterInits,
			MaxIter:               a.ClusterMaxIter,
			Seed:                  a.ClusterSeed,
			WeekendRatioThreshold: a.WeekendRatioThreshold,
			Confidence:            a.PersonaConfidence,
		}),
		forecaster: forecast.NewEngine(forecast.Config{
			MinTransactions:       a.MinForecastTransactions,
			HorizonDays:           a.ForecastHorizonDays,
			ChangepointPriorScale: a.ChangepointPriorScale,
			SeasonalityPriorScale: a.SeasonalityPriorScale,
			Changepoints:          a.Changepoints,
			ChangepointRange:      a.ChangepointRange,
			WeeklyOrder:           a.WeeklyFourierOrder,
			IntervalWidth:         a.IntervalWidth,
		}),
		nudges: nudge.NewEngine(nudge.Config{
			CriticalBalance:   a.CriticalBalance,
			LowBalance:        a.LowBalance,
			OverspendRatio:    a.OverspendRatio,
			HistoricalDays:    a.HistoryStartDays - a.HistoryEndDays,
			SavingsThreshold:  a.SavingsThreshold,
			SavingsBuffer:     a.SavingsBuffer,
			SubscriptionCount: a.SubscriptionCount,
		}),
		patterns:  pattern.NewDetector(pattern.DefaultConfig()),
		deliverer: deps.Deliverer,
		rates:     deps.Rates,
		locker:    deps.Locker,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
	if s.deliverer == nil {
		s.deliverer = notify.NewMulti()
	}
	if s.locker == nil {
		s.locker = cache.NewLocalLocker()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// Metrics exposes the registry for the /metrics endpoint
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}
