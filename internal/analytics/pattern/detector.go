// Package pattern finds named behavioural patterns in a user's outflows.
package pattern

import (
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/utils"
)

// Pattern names; at most one active pattern per user and name
const (
	WeekdayHourSpike = "weekday_hour_spike"
	WeekendSplurge   = "weekend_splurge"
)

// Config tunes the detector
type Config struct {
	MinSlotOccurrences int
	SpikeRatio         float64
	WeekendRatio       float64
}

// DefaultConfig returns the detector defaults
func DefaultConfig() Config {
	return Config{MinSlotOccurrences: 3, SpikeRatio: 1.5, WeekendRatio: 0.4}
}

// Detector scans outflows for patterns
type Detector struct {
	cfg Config
}

// NewDetector creates a detector, filling unset values with defaults
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.MinSlotOccurrences < 1 {
		cfg.MinSlotOccurrences = def.MinSlotOccurrences
	}
	if cfg.SpikeRatio <= 0 {
		cfg.SpikeRatio = def.SpikeRatio
	}
	if cfg.WeekendRatio <= 0 {
		cfg.WeekendRatio = def.WeekendRatio
	}
	return &Detector{cfg: cfg}
}

type slot struct {
	day  time.Weekday
	hour int
}

// less orders slots Sunday first, then by hour
func (s slot) less(o slot) bool {
	if s.day != o.day {
		return s.day < o.day
	}
	return s.hour < o.hour
}

// Detect returns the patterns found in txns, stamped with now. Inflows are
// ignored; no outflows means no patterns.
func (d *Detector) Detect(txns []models.Transaction, now time.Time) []models.SpendingPattern {
	var (
		userID         int64
		total, weekend float64
		count          int
		sums           = make(map[slot]float64)
		counts         = make(map[slot]int)
	)
	for _, t := range txns {
		if !t.IsOutflow() {
			continue
		}
		userID = t.UserID
		m := t.Magnitude()
		total += m
		count++
		if utils.IsWeekend(t.OccurredAt) {
			weekend += m
		}
		s := slot{day: t.OccurredAt.Weekday(), hour: t.OccurredAt.Hour()}
		sums[s] += m
		counts[s]++
	}
	if count == 0 {
		return nil
	}

	var out []models.SpendingPattern
	if p, ok := d.spike(sums, counts, total/float64(count)); ok {
		p.UserID = userID
		p.DetectedAt = now.UTC()
		out = append(out, p)
	}

	if ratio := utils.SafeRatio(weekend, total); ratio > d.cfg.WeekendRatio {
		weekendCount := 0
		for s, c := range counts {
			if s.day == time.Saturday || s.day == time.Sunday {
				weekendCount += c
			}
		}
		out = append(out, models.SpendingPattern{
			UserID:       userID,
			Name:         WeekendSplurge,
			AvgMagnitude: utils.SafeRatio(weekend, float64(weekendCount)),
			Occurrences:  weekendCount,
			DetectedAt:   now.UTC(),
		})
	}
	return out
}

// spike picks the busiest-by-value slot that clears both the occurrence and
// ratio thresholds; ties go to the earliest slot in the week.
func (d *Detector) spike(sums map[slot]float64, counts map[slot]int, overall float64) (models.SpendingPattern, bool) {
	var (
		best    slot
		bestAvg float64
		found   bool
	)
	for s, c := range counts {
		if c < d.cfg.MinSlotOccurrences {
			continue
		}
		avg := sums[s] / float64(c)
		if avg < d.cfg.SpikeRatio*overall {
			continue
		}
		if !found || avg > bestAvg || (avg == bestAvg && s.less(best)) {
			best, bestAvg, found = s, avg, true
		}
	}
	if !found {
		return models.SpendingPattern{}, false
	}

	day, hour := int(best.day), best.hour
	return models.SpendingPattern{
		Name:         WeekdayHourSpike,
		DayOfWeek:    &day,
		HourOfDay:    &hour,
		AvgMagnitude: bestAvg,
		Occurrences:  counts[best],
	}, true
}
