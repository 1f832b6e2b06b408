// Package nudge evaluates threshold rules against forecasts and recent
// spending and emits alerts.
package nudge

import (
	"fmt"
	"sort"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
)

// Config holds the rule thresholds
type Config struct {
	CriticalBalance   float64
	LowBalance        float64
	OverspendRatio    float64
	HistoricalDays    int // length of the baseline window
	SavingsThreshold  float64
	SavingsBuffer     float64
	SubscriptionCount int
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		CriticalBalance:   100,
		LowBalance:        500,
		OverspendRatio:    1.5,
		HistoricalDays:    30,
		SavingsThreshold:  2000,
		SavingsBuffer:     1500,
		SubscriptionCount: 5,
	}
}

// Input is everything one nudge run looks at
type Input struct {
	UserID     int64
	Forecast   []models.ForecastPoint
	Recent     []models.Transaction // last 7 days
	Historical []models.Transaction // the 30-60 days before now
	Recurring  []models.Transaction
	// KeyRate is an optional annual rate in percent used to quote the yield
	// of a suggested saving; zero leaves it out.
	KeyRate float64
	Now     time.Time
}

// rule evaluates one nudge category; it returns false when it does not fire
type rule struct {
	name string
	eval func(cfg Config, in Input) (models.Nudge, bool)
}

// Engine runs the rule set
type Engine struct {
	cfg   Config
	rules []rule
}

// NewEngine creates an engine with the default rule order
func NewEngine(cfg Config) *Engine {
	if cfg.HistoricalDays < 1 {
		cfg.HistoricalDays = DefaultConfig().HistoricalDays
	}
	return &Engine{
		cfg: cfg,
		rules: []rule{
			{"balance_risk", balanceRisk},
			{"overspending", overspending},
			{"savings_opportunity", savingsOpportunity},
			{"subscription_review", subscriptionReview},
		},
	}
}

// Generate evaluates every rule once and returns the nudges that fired,
// at most one per rule, all unread and stamped with in.Now.
func (e *Engine) Generate(in Input) []models.Nudge {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	var out []models.Nudge
	for _, r := range e.rules {
		n, ok := r.eval(e.cfg, in)
		if !ok {
			continue
		}
		n.UserID = in.UserID
		n.CreatedAt = in.Now.UTC()
		out = append(out, n)
	}
	return out
}

func sortedForecast(points []models.ForecastPoint) []models.ForecastPoint {
	out := make([]models.ForecastPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// balanceRisk tries each tier in priority order; the first tier with a
// breaching point wins, so critical always beats low balance.
func balanceRisk(cfg Config, in Input) (models.Nudge, bool) {
	tiers := []struct {
		kind      models.NudgeKind
		threshold float64
		message   string
	}{
		{models.NudgeCriticalBalance, cfg.CriticalBalance, "Critical: your balance is projected to fall to $%.2f on %s. Cover upcoming payments now to avoid an overdraft."},
		{models.NudgeLowBalance, cfg.LowBalance, "Heads up: your balance is projected to drop to $%.2f on %s. Consider holding off on non-essential spending."},
	}

	points := sortedForecast(in.Forecast)
	for _, tier := range tiers {
		for _, p := range points {
			if p.Predicted < tier.threshold {
				day := p.Date.Format("2006-01-02")
				return models.Nudge{
					Kind:    tier.kind,
					Message: fmt.Sprintf(tier.message, p.Predicted, day),
					Trigger: fmt.Sprintf("predicted balance %.2f < %.2f on %s", p.Predicted, tier.threshold, day),
				}, true
			}
		}
	}
	return models.Nudge{}, false
}

func overspending(cfg Config, in Input) (models.Nudge, bool) {
	recent := outflowTotal(in.Recent)
	weekly := outflowTotal(in.Historical) / (float64(cfg.HistoricalDays) / 7)
	if weekly <= 0 || recent <= 0 || recent < cfg.OverspendRatio*weekly {
		return models.Nudge{}, false
	}

	category, amount := topCategory(in.Recent)
	return models.Nudge{
		Kind: models.NudgeOverspending,
		Message: fmt.Sprintf("You spent $%.2f in the last 7 days, %.1fx your usual weekly $%.2f. Most of it went to %s ($%.2f).",
			recent, recent/weekly, weekly, category, amount),
		Trigger: fmt.Sprintf("recent outflow %.2f >= %.2f x weekly average %.2f", recent, cfg.OverspendRatio, weekly),
	}, true
}

func savingsOpportunity(cfg Config, in Input) (models.Nudge, bool) {
	points := sortedForecast(in.Forecast)
	if len(points) == 0 {
		return models.Nudge{}, false
	}
	final := points[len(points)-1].Predicted
	if final <= cfg.SavingsThreshold {
		return models.Nudge{}, false
	}

	surplus := final - cfg.SavingsBuffer
	msg := fmt.Sprintf("Your balance is projected to reach $%.2f. You could move $%.2f into savings and still keep a $%.2f buffer.",
		final, surplus, cfg.SavingsBuffer)
	if in.KeyRate > 0 {
		msg += fmt.Sprintf(" At a %.2f%% rate that earns about $%.2f a year.", in.KeyRate, surplus*in.KeyRate/100)
	}
	return models.Nudge{
		Kind:    models.NudgeSavingsOpportunity,
		Message: msg,
		Trigger: fmt.Sprintf("final predicted balance %.2f > %.2f", final, cfg.SavingsThreshold),
	}, true
}

func subscriptionReview(cfg Config, in Input) (models.Nudge, bool) {
	count := len(in.Recurring)
	if count <= cfg.SubscriptionCount {
		return models.Nudge{}, false
	}
	var monthly float64
	for _, t := range in.Recurring {
		if t.IsOutflow() {
			monthly += t.Magnitude()
		}
	}
	return models.Nudge{
		Kind: models.NudgeSubscriptionReview,
		Message: fmt.Sprintf("You have %d recurring payments totaling $%.2f per month. Review the ones you no longer use.",
			count, monthly),
		Trigger: fmt.Sprintf("recurring transactions %d > %d", count, cfg.SubscriptionCount),
	}, true
}

func outflowTotal(txns []models.Transaction) float64 {
	var total float64
	for _, t := range txns {
		if t.IsOutflow() {
			total += t.Magnitude()
		}
	}
	return total
}

// topCategory returns the category with the largest outflow; ties go to the
// category seen first in time order
func topCategory(txns []models.Transaction) (models.Category, float64) {
	ordered := make([]models.Transaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].OccurredAt.Before(ordered[j].OccurredAt) })

	totals := make(map[models.Category]float64)
	var order []models.Category
	for _, t := range ordered {
		if !t.IsOutflow() {
			continue
		}
		if _, seen := totals[t.Category]; !seen {
			order = append(order, t.Category)
		}
		totals[t.Category] += t.Magnitude()
	}

	var best models.Category
	bestAmount := -1.0
	for _, c := range order {
		if totals[c] > bestAmount {
			best, bestAmount = c, totals[c]
		}
	}
	return best, bestAmount
}
