// Package seed generates synthetic transaction histories for demo
// environments and tests.
package seed

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
)

// Archetype is a spending behaviour the generator can imitate
type Archetype string

const (
	Frugal     Archetype = "frugal"
	Balanced   Archetype = "balanced"
	Impulsive  Archetype = "impulsive"
	Weekend    Archetype = "weekend"
	BigSpender Archetype = "big_spender"
)

// Archetypes lists every archetype in a stable order
var Archetypes = []Archetype{Frugal, Balanced, Impulsive, Weekend, BigSpender}

// ParseArchetype validates an archetype name
func ParseArchetype(s string) (Archetype, error) {
	for _, a := range Archetypes {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown archetype %q", s)
}

type profile struct {
	minDaily, maxDaily int
	minAmount, maxAmount float64
}

// profileFor returns the daily spending shape of an archetype on day d
func profileFor(a Archetype, d time.Time) profile {
	switch a {
	case Frugal:
		return profile{0, 1, 5, 30}
	case Balanced:
		return profile{1, 2, 10, 70}
	case Impulsive:
		return profile{1, 4, 20, 200}
	case Weekend:
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return profile{2, 4, 30, 150}
		}
		return profile{0, 1, 10, 40}
	default:
		return profile{0, 2, 50, 500}
	}
}

// salary is the biweekly net pay credited to each archetype
var salary = map[Archetype]float64{
	Frugal:     1400,
	Balanced:   1800,
	Impulsive:  2600,
	Weekend:    1700,
	BigSpender: 4200,
}

var merchants = map[models.Category][]string{
	models.CategoryGroceries:     {"Fresh Market", "Corner Grocer", "Whole Foods Market"},
	models.CategoryEntertainment: {"Cinema City", "Arcade Hall", "Concert Tickets"},
	models.CategoryTech:          {"Gadget Store", "App Store", "Electronics Depot"},
	models.CategoryRent:          {"Property Management"},
	models.CategorySubscriptions: {"Streamly", "MusicBox", "Cloud Drive"},
	models.CategoryDining:        {"Pasta Place", "Sushi Bar", "Coffee House"},
	models.CategoryTravel:        {"City Rail", "Air Travel Co", "Ride Share"},
}

// spendCategories are the categories drawn for ordinary outflows
var spendCategories = []models.Category{
	models.CategoryGroceries,
	models.CategoryEntertainment,
	models.CategoryTech,
	models.CategoryRent,
	models.CategorySubscriptions,
	models.CategoryDining,
	models.CategoryTravel,
}

// Generator produces reproducible histories from a seed
type Generator struct {
	rng   *rand.Rand
	start time.Time
	days  int
}

// NewGenerator creates a generator covering days days from start
func NewGenerator(seed int64, start time.Time, days int) *Generator {
	if days < 1 {
		days = 180
	}
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		start: start.UTC().Truncate(24 * time.Hour),
		days:  days,
	}
}

// Pick draws a random archetype
func (g *Generator) Pick() Archetype {
	return Archetypes[g.rng.Intn(len(Archetypes))]
}

// Transactions builds the full history of one account: daily spending in the
// archetype's shape, a monthly subscription and biweekly salary credits
func (g *Generator) Transactions(a Archetype, userID, accountID int64) []models.Transaction {
	var out []models.Transaction
	for day := 0; day < g.days; day++ {
		date := g.start.AddDate(0, 0, day)
		p := profileFor(a, date)

		n := p.minDaily + g.rng.Intn(p.maxDaily-p.minDaily+1)
		for i := 0; i < n; i++ {
			category := spendCategories[g.rng.Intn(len(spendCategories))]
			amount := p.minAmount + g.rng.Float64()*(p.maxAmount-p.minAmount)
			out = append(out, g.debit(userID, accountID, date, category, amount, false))
		}

		if day%30 == 0 {
			amount := 10 + g.rng.Float64()*40
			out = append(out, g.debit(userID, accountID, date, models.CategorySubscriptions, amount, true))
		}
		if day%14 == 0 {
			out = append(out, models.Transaction{
				UserID:      userID,
				AccountID:   accountID,
				Amount:      salary[a],
				Direction:   models.DirectionCredit,
				Category:    models.CategoryIncome,
				Merchant:    "Employer Payroll",
				Recurring:   true,
				Description: "salary",
				OccurredAt:  date.Add(9 * time.Hour),
			})
		}
	}
	return out
}

func (g *Generator) debit(userID, accountID int64, date time.Time, c models.Category, amount float64, recurring bool) models.Transaction {
	names := merchants[c]
	hour := 8 + g.rng.Intn(15)
	minute := g.rng.Intn(60)
	return models.Transaction{
		UserID:     userID,
		AccountID:  accountID,
		Amount:     -math.Round(amount*100) / 100,
		Direction:  models.DirectionDebit,
		Category:   c,
		Merchant:   names[g.rng.Intn(len(names))],
		Recurring:  recurring,
		OccurredAt: date.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute),
	}
}
