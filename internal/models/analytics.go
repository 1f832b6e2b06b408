package models

import "time"

// FeatureVector summarizes one user's outflow behaviour for a clustering run
type FeatureVector struct {
	UserID             int64    `json:"user_id"`
	AvgMagnitude       float64  `json:"avg_magnitude"`
	MedianMagnitude    float64  `json:"median_magnitude"`
	StdMagnitude       float64  `json:"std_magnitude"`
	TotalOutflow       float64  `json:"total_outflow"`
	Count              int      `json:"count"`
	Frequency          float64  `json:"frequency"` // transactions per 30 days
	WeekendRatio       float64  `json:"weekend_ratio"`
	EveningRatio       float64  `json:"evening_ratio"`
	DistinctCategories int      `json:"distinct_categories"`
	MaxMagnitude       float64  `json:"max_magnitude"`
	TopCategory        Category `json:"top_category"`
}

// ClusterInputs returns the six features fed to the clustering step, in a fixed order
func (f FeatureVector) ClusterInputs() []float64 {
	return []float64{
		f.AvgMagnitude,
		f.Frequency,
		f.WeekendRatio,
		float64(f.DistinctCategories),
		f.StdMagnitude,
		f.EveningRatio,
	}
}

// Persona is a human-readable behavioural label
type Persona string

const (
	PersonaFrugalSaver     Persona = "Frugal Saver"
	PersonaWeekendWarrior  Persona = "Weekend Warrior"
	PersonaBigTicketBuyer  Persona = "Big Ticket Buyer"
	PersonaImpulsive       Persona = "Impulsive Spender"
	PersonaBalancedSpender Persona = "Balanced Spender"
)

// PersonaAssignment is the single active persona of a user
type PersonaAssignment struct {
	UserID       int64     `json:"user_id"`
	Persona      Persona   `json:"persona"`
	ClusterID    int       `json:"cluster_id"`
	AvgMagnitude float64   `json:"avg_magnitude"`
	Frequency    float64   `json:"frequency"`
	TopCategory  Category  `json:"top_category"`
	Confidence   float64   `json:"confidence"`
	RunID        string    `json:"run_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// DailyBalance represents balance for a specific day
type DailyBalance struct {
	Date    time.Time `json:"date"`
	Net     float64   `json:"net"`
	Balance float64   `json:"balance"`
}

// ForecastPoint is the projected balance of an account on one future day
type ForecastPoint struct {
	UserID    int64     `json:"user_id"`
	AccountID int64     `json:"account_id"`
	RunID     string    `json:"run_id"`
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// Trend is the coarse direction of a forecast
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// ForecastSummary condenses a forecast run
type ForecastSummary struct {
	UserID         int64     `json:"user_id"`
	AccountID      int64     `json:"account_id"`
	RunID          string    `json:"run_id"`
	HorizonDays    int       `json:"horizon_days"`
	CurrentBalance float64   `json:"current_balance"`
	FinalPredicted float64   `json:"final_predicted"`
	Trend          Trend     `json:"trend"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// BalanceForecast represents a balance forecast for N days together with the history it was fitted on
type BalanceForecast struct {
	History []DailyBalance  `json:"history"`
	Points  []ForecastPoint `json:"points"`
	Summary ForecastSummary `json:"summary"`
}

// SpendingPattern is a named behavioural pattern detected for a user.
// DayOfWeek and HourOfDay are nil for patterns not tied to a time slot.
type SpendingPattern struct {
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	DayOfWeek    *int      `json:"day_of_week,omitempty"`
	HourOfDay    *int      `json:"hour_of_day,omitempty"`
	AvgMagnitude float64   `json:"avg_magnitude"`
	Occurrences  int       `json:"occurrences"`
	DetectedAt   time.Time `json:"detected_at"`
}

// NudgeKind enumerates the alerts the nudge engine can raise
type NudgeKind string

const (
	NudgeCriticalBalance    NudgeKind = "critical_balance"
	NudgeLowBalance         NudgeKind = "low_balance"
	NudgeOverspending       NudgeKind = "overspending"
	NudgeSavingsOpportunity NudgeKind = "savings_opportunity"
	NudgeSubscriptionReview NudgeKind = "subscription_review"
)

// Nudge is an append-only alert for a user. Read is the only mutable field.
type Nudge struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      NudgeKind `json:"kind"`
	Message   string    `json:"message"`
	Trigger   string    `json:"trigger"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
