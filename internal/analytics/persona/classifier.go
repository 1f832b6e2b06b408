// Package persona clusters users by spending behaviour and labels each one
// with a persona relative to the current population.
package persona

import (
	"sort"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/google/uuid"
)

// Config tunes the clustering run
type Config struct {
	Clusters              int
	Inits                 int
	MaxIter               int
	Seed                  int64
	WeekendRatioThreshold float64
	Confidence            float64
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Clusters:              5,
		Inits:                 10,
		MaxIter:               300,
		Seed:                  42,
		WeekendRatioThreshold: 0.4,
		Confidence:            0.85,
	}
}

// Classifier assigns personas to a whole population at once
type Classifier struct {
	cfg   Config
	rules []rule
	now   func() time.Time
}

// NewClassifier creates a classifier with the given config
func NewClassifier(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.Clusters < 1 {
		cfg.Clusters = def.Clusters
	}
	if cfg.Inits < 1 {
		cfg.Inits = def.Inits
	}
	if cfg.MaxIter < 1 {
		cfg.MaxIter = def.MaxIter
	}
	if cfg.WeekendRatioThreshold <= 0 {
		cfg.WeekendRatioThreshold = def.WeekendRatioThreshold
	}
	if cfg.Confidence <= 0 {
		cfg.Confidence = def.Confidence
	}
	return &Classifier{
		cfg:   cfg,
		rules: defaultRules(cfg.WeekendRatioThreshold),
		now:   time.Now,
	}
}

// Assign clusters every vector and labels each user. Vectors are processed
// in user id order so the same population always yields the same cluster ids.
// An empty population returns models.ErrNoEligibleUsers.
func (c *Classifier) Assign(vectors []models.FeatureVector) ([]models.PersonaAssignment, error) {
	if len(vectors) == 0 {
		return nil, models.ErrNoEligibleUsers
	}

	ordered := make([]models.FeatureVector, len(vectors))
	copy(ordered, vectors)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].UserID < ordered[j].UserID })

	rows := make([][]float64, len(ordered))
	for i, v := range ordered {
		rows[i] = v.ClusterInputs()
	}
	scaled := fitScaler(rows).transform(rows)

	k := c.cfg.Clusters
	if k > len(scaled) {
		k = len(scaled)
	}
	groups := kmeans(scaled, k, c.cfg.Inits, c.cfg.MaxIter, c.cfg.Seed)

	stats := describe(ordered)
	runID := uuid.NewString()
	assignedAt := c.now().UTC()

	out := make([]models.PersonaAssignment, len(ordered))
	for i, v := range ordered {
		out[i] = models.PersonaAssignment{
			UserID:       v.UserID,
			Persona:      labelFor(c.rules, v, stats),
			ClusterID:    groups.labels[i],
			AvgMagnitude: v.AvgMagnitude,
			Frequency:    v.Frequency,
			TopCategory:  v.TopCategory,
			Confidence:   c.cfg.Confidence,
			RunID:        runID,
			AssignedAt:   assignedAt,
		}
	}
	return out, nil
}
