package persona

import (
	"testing"
	"time"

	"github.com/Dan9191/bank-insights/internal/analytics/features"
	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededPopulation(t *testing.T) []models.FeatureVector {
	t.Helper()
	gen := seed.NewGenerator(11, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 180)
	ext := features.NewExtractor(features.DefaultMinTransactions)

	var vectors []models.FeatureVector
	id := int64(1)
	for _, a := range seed.Archetypes {
		for i := 0; i < 6; i++ {
			v, err := ext.Extract(gen.Transactions(a, id, id))
			require.NoError(t, err)
			v.UserID = id
			vectors = append(vectors, *v)
			id++
		}
	}
	return vectors
}

func TestAssignSeededPopulation(t *testing.T) {
	vectors := seededPopulation(t)
	c := NewClassifier(DefaultConfig())

	first, err := c.Assign(vectors)
	require.NoError(t, err)
	require.Len(t, first, len(vectors))

	second, err := c.Assign(vectors)
	require.NoError(t, err)

	clusters := make(map[int]bool)
	for i := range first {
		assert.Equal(t, first[i].ClusterID, second[i].ClusterID)
		assert.Equal(t, first[i].Persona, second[i].Persona)
		assert.NotEmpty(t, first[i].Persona)
		clusters[first[i].ClusterID] = true
	}
	assert.Greater(t, len(clusters), 1)
	assert.LessOrEqual(t, len(clusters), DefaultConfig().Clusters)
}
