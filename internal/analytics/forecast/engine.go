// Package forecast projects an account's daily balance forward with an
// additive trend plus weekly seasonality model and uncertainty bounds.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/utils"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config tunes the forecast model
type Config struct {
	MinTransactions       int
	HorizonDays           int
	ChangepointPriorScale float64 // higher lets the trend bend more
	SeasonalityPriorScale float64 // higher lets weekly swings grow
	Changepoints          int
	ChangepointRange      float64
	WeeklyOrder           int
	IntervalWidth         float64
	NoiseFloor            float64 // minimum residual sigma, as a share of max |balance|
}

// DefaultConfig returns moderate trend flexibility and the usual 95% band
func DefaultConfig() Config {
	return Config{
		MinTransactions:       30,
		HorizonDays:           30,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		Changepoints:          25,
		ChangepointRange:      0.8,
		WeeklyOrder:           3,
		IntervalWidth:         0.95,
		NoiseFloor:            0.001,
	}
}

// Engine fits and projects balance series
type Engine struct {
	cfg Config
}

// NewEngine creates an engine, filling unset config values with defaults
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MinTransactions < 1 {
		cfg.MinTransactions = def.MinTransactions
	}
	if cfg.HorizonDays < 1 {
		cfg.HorizonDays = def.HorizonDays
	}
	if cfg.ChangepointPriorScale <= 0 {
		cfg.ChangepointPriorScale = def.ChangepointPriorScale
	}
	if cfg.SeasonalityPriorScale <= 0 {
		cfg.SeasonalityPriorScale = def.SeasonalityPriorScale
	}
	if cfg.Changepoints < 0 {
		cfg.Changepoints = def.Changepoints
	}
	if cfg.ChangepointRange <= 0 || cfg.ChangepointRange > 1 {
		cfg.ChangepointRange = def.ChangepointRange
	}
	if cfg.WeeklyOrder < 0 {
		cfg.WeeklyOrder = def.WeeklyOrder
	}
	if cfg.IntervalWidth <= 0 || cfg.IntervalWidth >= 1 {
		cfg.IntervalWidth = def.IntervalWidth
	}
	if cfg.NoiseFloor <= 0 {
		cfg.NoiseFloor = def.NoiseFloor
	}
	return &Engine{cfg: cfg}
}

// DailyBalances aggregates signed amounts per calendar day (UTC) and
// accumulates them on top of the opening balance. Days without
// transactions are not filled in.
func DailyBalances(txns []models.Transaction, opening float64) []models.DailyBalance {
	net := make(map[time.Time]float64)
	for _, t := range txns {
		day := utils.DayStart(t.OccurredAt.UTC())
		net[day] += t.SignedAmount()
	}
	days := make([]time.Time, 0, len(net))
	for d := range net {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]models.DailyBalance, len(days))
	balance := opening
	for i, d := range days {
		balance += net[d]
		out[i] = models.DailyBalance{Date: d, Net: net[d], Balance: balance}
	}
	return out
}

// Forecast fits the model to the account history and projects horizonDays
// calendar days after max(last observed day, day of now), so every point lies
// in the future even when the account has been quiet. horizonDays <= 0 uses
// the configured default. Either the complete forecast is returned or an
// error and nothing else.
func (e *Engine) Forecast(txns []models.Transaction, opening float64, horizonDays int, now time.Time) (*models.BalanceForecast, error) {
	if len(txns) < e.cfg.MinTransactions {
		return nil, &models.InsufficientDataError{Component: "forecast engine", Have: len(txns), Need: e.cfg.MinTransactions}
	}
	if horizonDays <= 0 {
		horizonDays = e.cfg.HorizonDays
	}

	history := DailyBalances(txns, opening)
	s := series{days: make([]time.Time, len(history)), values: make([]float64, len(history))}
	for i, h := range history {
		s.days[i] = h.Date
		s.values[i] = h.Balance
	}

	model, err := fit(s, e.cfg)
	if err != nil {
		return nil, err
	}

	z := distuv.UnitNormal.Quantile(0.5 + e.cfg.IntervalWidth/2)
	last := s.days[len(s.days)-1]
	anchor := last
	if today := utils.DayStart(now.UTC()); today.After(anchor) {
		anchor = today
	}
	runID := uuid.NewString()
	userID, accountID := txns[0].UserID, txns[0].AccountID

	buf := make([]float64, model.width())
	points := make([]models.ForecastPoint, horizonDays)
	for h := 1; h <= horizonDays; h++ {
		day := anchor.AddDate(0, 0, h)
		yhat, sd := model.predict(day, last, buf)
		if math.IsNaN(yhat) || math.IsNaN(sd) {
			return nil, &models.ModelFitError{Reason: "non-finite projection"}
		}
		points[h-1] = models.ForecastPoint{
			UserID:    userID,
			AccountID: accountID,
			RunID:     runID,
			Date:      day,
			Predicted: clamp(yhat),
			Lower:     clamp(yhat - z*sd),
			Upper:     clamp(yhat + z*sd),
		}
	}

	current := s.values[len(s.values)-1]
	final := points[len(points)-1].Predicted
	trend := models.TrendDecreasing
	if final > current {
		trend = models.TrendIncreasing
	}

	return &models.BalanceForecast{
		History: history,
		Points:  points,
		Summary: models.ForecastSummary{
			UserID:         userID,
			AccountID:      accountID,
			RunID:          runID,
			HorizonDays:    horizonDays,
			CurrentBalance: current,
			FinalPredicted: final,
			Trend:          trend,
			GeneratedAt:    now.UTC(),
		},
	}, nil
}

// clamp keeps projected balances non-negative
func clamp(v float64) float64 {
	return math.Max(0, v)
}
