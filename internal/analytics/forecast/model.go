package forecast

import (
	"math"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// noisePrior is the assumed observation noise in scaled units; the ratio of
// it to each prior scale sets the ridge penalty of the matching coefficients.
const noisePrior = 0.05

const secondsPerDay = 86400.0

// series is a history of daily balances at irregular day offsets
type series struct {
	days   []time.Time
	values []float64
}

// additiveModel is y(t) = trend(t) + weekly(t), trend piecewise linear with
// slope changes at fixed changepoints. Time and values are fitted in scaled
// units (t in [0,1] across the history, y divided by max |y|).
type additiveModel struct {
	origin       time.Time
	span         float64 // history length in days
	yScale       float64
	changepoints []float64
	order        int

	coef     []float64
	sigma    float64
	cpRate   float64
	deltaAbs float64
}

func (m *additiveModel) scaledTime(day time.Time) float64 {
	return day.Sub(m.origin).Hours() / 24 / m.span
}

// row fills the design row for one day: intercept, slope, one hinge per
// changepoint, then cos/sin pairs per weekly harmonic.
func (m *additiveModel) row(day time.Time, dst []float64) {
	t := m.scaledTime(day)
	dst[0] = 1
	dst[1] = t
	i := 2
	for _, s := range m.changepoints {
		dst[i] = math.Max(0, t-s)
		i++
	}
	// phase anchored to the epoch so weekdays line up across runs
	epochDays := float64(day.Unix()) / secondsPerDay
	for n := 1; n <= m.order; n++ {
		x := 2 * math.Pi * float64(n) * epochDays / 7
		dst[i] = math.Cos(x)
		dst[i+1] = math.Sin(x)
		i += 2
	}
}

func (m *additiveModel) width() int {
	return 2 + len(m.changepoints) + 2*m.order
}

// fit estimates the coefficients by penalized least squares. Intercept and
// slope are free; changepoint deltas and seasonal terms are shrunk towards 0.
func fit(s series, cfg Config) (*additiveModel, error) {
	n := len(s.days)
	if n < 2 {
		return nil, &models.ModelFitError{Reason: "series has fewer than two distinct days"}
	}
	span := s.days[n-1].Sub(s.days[0]).Hours() / 24
	if span <= 0 {
		return nil, &models.ModelFitError{Reason: "series spans a single day"}
	}

	yScale := 0.0
	for _, v := range s.values {
		yScale = math.Max(yScale, math.Abs(v))
	}
	if yScale == 0 {
		return nil, &models.ModelFitError{Reason: "series is identically zero"}
	}
	if floats.Max(s.values) == floats.Min(s.values) {
		return nil, &models.ModelFitError{Reason: "series is constant"}
	}

	m := &additiveModel{
		origin: s.days[0],
		span:   span,
		yScale: yScale,
		order:  cfg.WeeklyOrder,
	}
	m.changepoints = placeChangepoints(s, m, cfg)
	if len(m.changepoints) > 0 {
		m.cpRate = float64(len(m.changepoints))
	}

	p := m.width()
	design := mat.NewDense(n+p, p, nil)
	target := mat.NewVecDense(n+p, nil)
	rowBuf := make([]float64, p)
	for i, day := range s.days {
		m.row(day, rowBuf)
		design.SetRow(i, rowBuf)
		target.SetVec(i, s.values[i]/yScale)
	}

	penalties := make([]float64, p)
	for j := range m.changepoints {
		penalties[2+j] = noisePrior / cfg.ChangepointPriorScale
	}
	for j := 0; j < 2*m.order; j++ {
		penalties[2+len(m.changepoints)+j] = noisePrior / cfg.SeasonalityPriorScale
	}
	for j, w := range penalties {
		design.Set(n+j, j, w)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(design, target); err != nil {
		return nil, &models.ModelFitError{Reason: "least squares solve", Err: err}
	}
	m.coef = make([]float64, p)
	for j := 0; j < p; j++ {
		c := coef.AtVec(j)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, &models.ModelFitError{Reason: "non-finite coefficient"}
		}
		m.coef[j] = c
	}

	var ssr float64
	for i, day := range s.days {
		r := s.values[i]/yScale - m.predictScaled(day, rowBuf)
		ssr += r * r
	}
	m.sigma = math.Max(math.Sqrt(ssr/float64(n)), cfg.NoiseFloor)

	for j := range m.changepoints {
		m.deltaAbs += math.Abs(m.coef[2+j])
	}
	if len(m.changepoints) > 0 {
		m.deltaAbs /= float64(len(m.changepoints))
	}
	return m, nil
}

// placeChangepoints spreads candidate changepoints evenly over the observed
// days inside the leading ChangepointRange share of the history.
func placeChangepoints(s series, m *additiveModel, cfg Config) []float64 {
	histSize := int(math.Floor(float64(len(s.days)) * cfg.ChangepointRange))
	count := cfg.Changepoints
	if count > histSize-1 {
		count = histSize - 1
	}
	if count <= 0 {
		return nil
	}
	cps := make([]float64, 0, count)
	step := float64(histSize-1) / float64(count)
	for i := 1; i <= count; i++ {
		idx := int(math.Round(step * float64(i)))
		cps = append(cps, m.scaledTime(s.days[idx]))
	}
	return cps
}

func (m *additiveModel) predictScaled(day time.Time, buf []float64) float64 {
	m.row(day, buf)
	return floats.Dot(buf, m.coef)
}

// predict returns the point forecast and the standard deviation of the
// prediction, both in original units. Trend uncertainty grows with the
// distance past the last observation: future changepoints arrive at the
// historical rate with Laplace-distributed deltas of the fitted mean size.
func (m *additiveModel) predict(day time.Time, last time.Time, buf []float64) (float64, float64) {
	yhat := m.predictScaled(day, buf)

	h := m.scaledTime(day) - m.scaledTime(last)
	variance := m.sigma * m.sigma
	if h > 0 && m.cpRate > 0 {
		laplaceVar := 2 * m.deltaAbs * m.deltaAbs
		variance += m.cpRate * laplaceVar * h * h * h / 3
	}
	return yhat * m.yScale, math.Sqrt(variance) * m.yScale
}
