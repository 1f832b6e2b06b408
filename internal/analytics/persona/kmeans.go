package persona

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

type clustering struct {
	labels    []int
	centroids [][]float64
	inertia   float64
}

// kmeans partitions points into k clusters. It runs `inits` k-means++
// initializations from a single seeded source and keeps the run with the
// lowest within-cluster sum of squares; the earliest run wins ties.
func kmeans(points [][]float64, k, inits, maxIter int, seed int64) clustering {
	rng := rand.New(rand.NewSource(seed))
	var best clustering
	for run := 0; run < inits; run++ {
		c := lloyd(points, seedCentroids(points, k, rng), maxIter)
		if run == 0 || c.inertia < best.inertia {
			best = c
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// seedCentroids picks k starting centroids with D^2 weighting
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.Intn(len(points))]
	centroids = append(centroids, append([]float64(nil), first...))

	d2 := make([]float64, len(points))
	for i, p := range points {
		d2[i] = sqDist(p, first)
	}

	for len(centroids) < k {
		total := floats.Sum(d2)
		idx := 0
		if total == 0 {
			idx = rng.Intn(len(points))
		} else {
			r := rng.Float64() * total
			acc := 0.0
			idx = -1
			for i, w := range d2 {
				if w > 0 {
					idx = i
				}
				acc += w
				if acc > r && w > 0 {
					break
				}
			}
		}
		next := append([]float64(nil), points[idx]...)
		centroids = append(centroids, next)
		for i, p := range points {
			if d := sqDist(p, next); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, maxIter int) clustering {
	k := len(centroids)
	dims := len(points[0])
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			l := nearest(p, centroids)
			if l != labels[i] {
				labels[i] = l
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// empty cluster takes over the point worst served by its centroid
				far := farthest(points, labels, centroids)
				centroids[c] = append([]float64(nil), points[far]...)
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centroids[labels[i]])
	}
	return clustering{labels: labels, centroids: centroids, inertia: inertia}
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func farthest(points [][]float64, labels []int, centroids [][]float64) int {
	idx, maxD := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > maxD {
			idx, maxD = i, d
		}
	}
	return idx
}
