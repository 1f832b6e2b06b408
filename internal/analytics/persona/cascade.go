package persona

import (
	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/utils"
)

// population holds the distribution statistics the cascade compares against.
// It lives only for the duration of one run.
type population struct {
	medianAvg  float64
	medianFreq float64
	p75Avg     float64
	p75Freq    float64
}

func describe(vectors []models.FeatureVector) population {
	avg := make([]float64, len(vectors))
	freq := make([]float64, len(vectors))
	for i, v := range vectors {
		avg[i] = v.AvgMagnitude
		freq[i] = v.Frequency
	}
	return population{
		medianAvg:  utils.Median(avg),
		medianFreq: utils.Median(freq),
		p75Avg:     utils.Percentile(avg, 0.75),
		p75Freq:    utils.Percentile(freq, 0.75),
	}
}

// rule is one (predicate, label) step of the cascade
type rule struct {
	label models.Persona
	match func(v models.FeatureVector, p population) bool
}

func defaultRules(weekendThreshold float64) []rule {
	return []rule{
		{models.PersonaFrugalSaver, func(v models.FeatureVector, p population) bool {
			return v.AvgMagnitude < p.medianAvg && v.Frequency < p.medianFreq
		}},
		{models.PersonaWeekendWarrior, func(v models.FeatureVector, _ population) bool {
			return v.WeekendRatio > weekendThreshold
		}},
		{models.PersonaBigTicketBuyer, func(v models.FeatureVector, p population) bool {
			return v.AvgMagnitude > p.p75Avg
		}},
		{models.PersonaImpulsive, func(v models.FeatureVector, p population) bool {
			return v.Frequency > p.p75Freq
		}},
	}
}

// labelFor walks the rules top to bottom and returns the first match
func labelFor(rules []rule, v models.FeatureVector, p population) models.Persona {
	for _, r := range rules {
		if r.match(v, p) {
			return r.label
		}
	}
	return models.PersonaBalancedSpender
}
