package nudge

import (
	"testing"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

func forecast(values ...float64) []models.ForecastPoint {
	out := make([]models.ForecastPoint, len(values))
	for i, v := range values {
		out[i] = models.ForecastPoint{
			UserID:    7,
			Date:      now.AddDate(0, 0, i+1),
			Predicted: v,
			Lower:     v - 50,
			Upper:     v + 50,
		}
	}
	return out
}

func spend(daysAgo int, amount float64, cat models.Category) models.Transaction {
	return models.Transaction{
		UserID:     7,
		Amount:     -amount,
		Direction:  models.DirectionDebit,
		Category:   cat,
		OccurredAt: now.AddDate(0, 0, -daysAgo),
	}
}

func kinds(nudges []models.Nudge) []models.NudgeKind {
	out := make([]models.NudgeKind, len(nudges))
	for i, n := range nudges {
		out[i] = n.Kind
	}
	return out
}

func TestGenerateCriticalBalance(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// dips below both thresholds; only the critical tier may fire
	got := e.Generate(Input{UserID: 7, Forecast: forecast(800, 400, 50, 300), Now: now})

	require.Len(t, got, 1)
	n := got[0]
	assert.Equal(t, models.NudgeCriticalBalance, n.Kind)
	assert.Equal(t, int64(7), n.UserID)
	assert.False(t, n.Read)
	assert.Equal(t, now, n.CreatedAt)
	assert.Contains(t, n.Message, "$50.00")
	assert.Contains(t, n.Message, now.AddDate(0, 0, 3).Format("2006-01-02"))
}

func TestGenerateLowBalance(t *testing.T) {
	got := NewEngine(DefaultConfig()).Generate(Input{UserID: 7, Forecast: forecast(900, 450, 600), Now: now})
	assert.Equal(t, []models.NudgeKind{models.NudgeLowBalance}, kinds(got))
}

func TestGenerateBalanceTiers(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []models.NudgeKind
	}{
		{"healthy", []float64{1200, 1100, 1000}, nil},
		{"exactly at low threshold", []float64{500}, nil},
		{"just under low threshold", []float64{499.99}, []models.NudgeKind{models.NudgeLowBalance}},
		{"exactly at critical threshold", []float64{100}, []models.NudgeKind{models.NudgeLowBalance}},
		{"zero", []float64{0}, []models.NudgeKind{models.NudgeCriticalBalance}},
		{"no forecast", nil, nil},
	}

	e := NewEngine(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Generate(Input{UserID: 7, Forecast: forecast(tt.values...), Now: now})
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, kinds(got))
		})
	}
}

func TestGenerateOverspending(t *testing.T) {
	// 4 weeks of history at 100/week
	var historical []models.Transaction
	for w := 0; w < 4; w++ {
		historical = append(historical, spend(30+7*w, 100, models.CategoryGroceries))
	}
	recent := []models.Transaction{
		spend(3, 60, models.CategoryDining),
		spend(2, 90, models.CategoryTech),
		spend(1, 30, models.CategoryDining),
	}

	cfg := DefaultConfig()
	cfg.HistoricalDays = 28
	got := NewEngine(cfg).Generate(Input{UserID: 7, Recent: recent, Historical: historical, Now: now})

	require.Len(t, got, 1)
	assert.Equal(t, models.NudgeOverspending, got[0].Kind)
	assert.Contains(t, got[0].Message, "$180.00")
	assert.Contains(t, got[0].Message, "1.8x")
	assert.Contains(t, got[0].Message, "weekly $100.00")
	// dining and tech tie at 90; dining was seen first
	assert.Contains(t, got[0].Message, "dining ($90.00)")
}

func TestGenerateOverspendingWeeklyBaselineUsesWindowLength(t *testing.T) {
	// 400 spent over the default 30 day window is 93.33 a week, not 100
	var historical []models.Transaction
	for w := 0; w < 4; w++ {
		historical = append(historical, spend(30+7*w, 100, models.CategoryGroceries))
	}
	recent := []models.Transaction{spend(1, 180, models.CategoryDining)}

	got := NewEngine(DefaultConfig()).Generate(Input{UserID: 7, Recent: recent, Historical: historical, Now: now})

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "weekly $93.33")
	assert.Contains(t, got[0].Message, "1.9x")
}

func TestGenerateOverspendingSkippedWithoutBaseline(t *testing.T) {
	recent := []models.Transaction{spend(1, 500, models.CategoryTravel)}
	got := NewEngine(DefaultConfig()).Generate(Input{UserID: 7, Recent: recent, Now: now})
	assert.Empty(t, got)
}

func TestGenerateOverspendingBelowRatio(t *testing.T) {
	// weekly baseline 400 / (30/7) = 93.33, threshold 140
	historical := []models.Transaction{spend(40, 400, models.CategoryRent)}
	recent := []models.Transaction{spend(1, 139, models.CategoryDining)}
	got := NewEngine(DefaultConfig()).Generate(Input{UserID: 7, Recent: recent, Historical: historical, Now: now})
	assert.Empty(t, got)
}

func TestGenerateSavingsOpportunity(t *testing.T) {
	e := NewEngine(DefaultConfig())

	got := e.Generate(Input{UserID: 7, Forecast: forecast(2600, 2800, 3000), Now: now})
	require.Len(t, got, 1)
	assert.Equal(t, models.NudgeSavingsOpportunity, got[0].Kind)
	assert.Contains(t, got[0].Message, "$1500.00")
	assert.NotContains(t, got[0].Message, "a year")

	got = e.Generate(Input{UserID: 7, Forecast: forecast(3000), KeyRate: 10, Now: now})
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "10.00%")
	assert.Contains(t, got[0].Message, "$150.00 a year")

	got = e.Generate(Input{UserID: 7, Forecast: forecast(2000), Now: now})
	assert.Empty(t, got)
}

func TestGenerateSubscriptionReview(t *testing.T) {
	var recurring []models.Transaction
	for i := 0; i < 6; i++ {
		tx := spend(i, 15, models.CategorySubscriptions)
		tx.Recurring = true
		recurring = append(recurring, tx)
	}

	e := NewEngine(DefaultConfig())
	got := e.Generate(Input{UserID: 7, Recurring: recurring, Now: now})
	require.Len(t, got, 1)
	assert.Equal(t, models.NudgeSubscriptionReview, got[0].Kind)
	assert.Contains(t, got[0].Message, "6")
	assert.Contains(t, got[0].Message, "$90.00")

	got = e.Generate(Input{UserID: 7, Recurring: recurring[:5], Now: now})
	assert.Empty(t, got)
}

func TestGenerateRuleOrder(t *testing.T) {
	var recurring []models.Transaction
	for i := 0; i < 7; i++ {
		recurring = append(recurring, spend(i, 10, models.CategorySubscriptions))
	}
	historical := []models.Transaction{spend(40, 40, models.CategoryGroceries)}
	recent := []models.Transaction{spend(1, 200, models.CategoryTravel)}

	got := NewEngine(DefaultConfig()).Generate(Input{
		UserID:     7,
		Forecast:   forecast(80),
		Recent:     recent,
		Historical: historical,
		Recurring:  recurring,
		Now:        now,
	})

	assert.Equal(t, []models.NudgeKind{
		models.NudgeCriticalBalance,
		models.NudgeOverspending,
		models.NudgeSubscriptionReview,
	}, kinds(got))
}
