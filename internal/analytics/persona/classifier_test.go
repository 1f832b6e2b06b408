package persona

import (
	"testing"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vector(id int64, avg, freq, weekend float64) models.FeatureVector {
	return models.FeatureVector{
		UserID:             id,
		AvgMagnitude:       avg,
		StdMagnitude:       avg / 4,
		Frequency:          freq,
		WeekendRatio:       weekend,
		EveningRatio:       0.2,
		DistinctCategories: 4,
		TopCategory:        models.CategoryGroceries,
	}
}

func population12() []models.FeatureVector {
	return []models.FeatureVector{
		vector(1, 15, 10, 0.1),
		vector(2, 18, 12, 0.2),
		vector(3, 20, 8, 0.1),
		vector(4, 45, 40, 0.2),
		vector(5, 50, 45, 0.3),
		vector(6, 48, 42, 0.25),
		vector(7, 110, 75, 0.2),
		vector(8, 120, 80, 0.1),
		vector(9, 60, 30, 0.7),
		vector(10, 65, 28, 0.8),
		vector(11, 300, 20, 0.2),
		vector(12, 280, 25, 0.1),
	}
}

func TestAssignNoEligibleUsers(t *testing.T) {
	out, err := NewClassifier(DefaultConfig()).Assign(nil)
	assert.ErrorIs(t, err, models.ErrNoEligibleUsers)
	assert.Nil(t, out)
}

func TestAssignIsDeterministic(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	first, err := c.Assign(population12())
	require.NoError(t, err)
	second, err := c.Assign(population12())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].UserID, second[i].UserID)
		assert.Equal(t, first[i].ClusterID, second[i].ClusterID)
		assert.Equal(t, first[i].Persona, second[i].Persona)
	}
}

func TestAssignIgnoresInputOrder(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	pop := population12()

	reversed := make([]models.FeatureVector, len(pop))
	for i, v := range pop {
		reversed[len(pop)-1-i] = v
	}

	a, err := c.Assign(pop)
	require.NoError(t, err)
	b, err := c.Assign(reversed)
	require.NoError(t, err)

	for i := range a {
		assert.Equal(t, a[i].UserID, b[i].UserID)
		assert.Equal(t, a[i].ClusterID, b[i].ClusterID)
	}
}

func TestAssignIdenticalVectorsShareLabel(t *testing.T) {
	pop := population12()
	twin := pop[4]
	twin.UserID = 99
	pop = append(pop, twin)

	out, err := NewClassifier(DefaultConfig()).Assign(pop)
	require.NoError(t, err)

	byUser := make(map[int64]models.PersonaAssignment)
	for _, a := range out {
		byUser[a.UserID] = a
	}
	assert.Equal(t, byUser[5].Persona, byUser[99].Persona)
	assert.Equal(t, byUser[5].ClusterID, byUser[99].ClusterID)
}

func TestAssignCascadeLabels(t *testing.T) {
	out, err := NewClassifier(DefaultConfig()).Assign(population12())
	require.NoError(t, err)

	byUser := make(map[int64]models.PersonaAssignment)
	for _, a := range out {
		byUser[a.UserID] = a
	}

	// population: median avg 55, median freq 29, p75 avg 112.5, p75 freq 42.75
	assert.Equal(t, models.PersonaFrugalSaver, byUser[1].Persona)
	assert.Equal(t, models.PersonaFrugalSaver, byUser[3].Persona)
	assert.Equal(t, models.PersonaWeekendWarrior, byUser[9].Persona)
	assert.Equal(t, models.PersonaWeekendWarrior, byUser[10].Persona)
	assert.Equal(t, models.PersonaBigTicketBuyer, byUser[11].Persona)
	assert.Equal(t, models.PersonaBigTicketBuyer, byUser[8].Persona)
	assert.Equal(t, models.PersonaImpulsive, byUser[7].Persona)
	assert.Equal(t, models.PersonaBalancedSpender, byUser[4].Persona)

	for _, a := range out {
		assert.Equal(t, 0.85, a.Confidence)
		assert.NotEmpty(t, a.RunID)
		assert.GreaterOrEqual(t, a.ClusterID, 0)
		assert.Less(t, a.ClusterID, 5)
	}
}

func TestAssignWeekdaySaverAgainstPricierPopulation(t *testing.T) {
	pop := []models.FeatureVector{
		vector(1, 30, 2, 0),
		vector(2, 80, 20, 0.1),
		vector(3, 90, 25, 0.2),
		vector(4, 70, 15, 0.1),
	}
	out, err := NewClassifier(DefaultConfig()).Assign(pop)
	require.NoError(t, err)
	assert.Equal(t, models.PersonaFrugalSaver, out[0].Persona)
}

func TestAssignFewerUsersThanClusters(t *testing.T) {
	pop := []models.FeatureVector{vector(1, 10, 5, 0), vector(2, 500, 50, 0.9)}
	out, err := NewClassifier(DefaultConfig()).Assign(pop)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEqual(t, out[0].ClusterID, out[1].ClusterID)
}

func TestKMeansSeparatesObviousGroups(t *testing.T) {
	points := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
	c := kmeans(points, 2, 5, 100, 42)
	assert.Equal(t, c.labels[0], c.labels[1])
	assert.Equal(t, c.labels[0], c.labels[2])
	assert.Equal(t, c.labels[3], c.labels[4])
	assert.Equal(t, c.labels[3], c.labels[5])
	assert.NotEqual(t, c.labels[0], c.labels[3])
	assert.Less(t, c.inertia, 0.1)
}

func TestScalerStandardizes(t *testing.T) {
	rows := [][]float64{{1, 5}, {3, 5}}
	z := fitScaler(rows).transform(rows)
	assert.InDelta(t, -1.0, z[0][0], 1e-9)
	assert.InDelta(t, 1.0, z[1][0], 1e-9)
	// constant column keeps unit scale
	assert.Equal(t, 0.0, z[0][1])
}
