package persona

import "gonum.org/v1/gonum/stat"

// standardScaler rescales each column to zero mean and unit variance.
// It is fitted per run and never kept afterwards.
type standardScaler struct {
	mean  []float64
	scale []float64
}

func fitScaler(rows [][]float64) standardScaler {
	if len(rows) == 0 {
		return standardScaler{}
	}
	dims := len(rows[0])
	s := standardScaler{mean: make([]float64, dims), scale: make([]float64, dims)}
	col := make([]float64, len(rows))
	for j := 0; j < dims; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.mean[j] = mean
		s.scale[j] = std
	}
	return s
}

func (s standardScaler) transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		z := make([]float64, len(r))
		for j, v := range r {
			z[j] = (v - s.mean[j]) / s.scale[j]
		}
		out[i] = z
	}
	return out
}
