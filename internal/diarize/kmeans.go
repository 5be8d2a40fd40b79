package diarize

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

const (
	kmeansMaxIterations = 300
	kmeansTolerance     = 1e-4
)

// Clustering is the outcome of a k-means run.
type Clustering struct {
	Labels    []int
	Centroids [][]float64
	// Inertia is the sum of squared distances from each point to its centroid.
	Inertia float64
}

// Cluster partitions points into k groups with k-means++ seeding and Lloyd
// iterations. It runs inits independent seedings drawn from one PCG stream
// seeded with seed and keeps the lowest-inertia result, so the same input and
// seed always produce the same labels.
func Cluster(points [][]float64, k int, seed uint64, inits int) (Clustering, error) {
	if k < 1 {
		return Clustering{}, fmt.Errorf("cluster count must be at least 1, got %d", k)
	}
	if len(points) < k {
		return Clustering{}, fmt.Errorf("%d points cannot form %d clusters", len(points), k)
	}
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return Clustering{}, fmt.Errorf("point %d has %d dimensions, want %d", i, len(p), dim)
		}
	}
	if dim == 0 {
		return Clustering{}, errors.New("points have no dimensions")
	}
	inits = max(inits, 1)

	rng := rand.New(rand.NewPCG(seed, seed))
	var best Clustering
	for run := 0; run < inits; run++ {
		result := lloyd(points, seedCentroids(points, k, rng))
		if run == 0 || result.Inertia < best.Inertia {
			best = result
		}
	}
	return best, nil
}

// seedCentroids picks k initial centroids with the k-means++ rule: each new
// centroid is drawn with probability proportional to its squared distance
// from the nearest centroid chosen so far.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	nearest := make([]float64, len(points))
	for i, p := range points {
		nearest[i] = squaredDistance(p, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(nearest)
		var next int
		if total <= 0 {
			next = rng.IntN(len(points))
		} else {
			target := rng.Float64() * total
			for next = 0; next < len(points)-1; next++ {
				target -= nearest[next]
				if target < 0 {
					break
				}
			}
		}
		centroid := clone(points[next])
		centroids = append(centroids, centroid)
		for i, p := range points {
			nearest[i] = math.Min(nearest[i], squaredDistance(p, centroid))
		}
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64) Clustering {
	k := len(centroids)
	dim := len(points[0])
	labels := make([]int, len(points))
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	counts := make([]int, k)

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		assign(points, centroids, labels)

		for c := range sums {
			for d := range sums[c] {
				sums[c][d] = 0
			}
			counts[c] = 0
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		var shift float64
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			shift += squaredDistance(centroids[c], sums[c])
			copy(centroids[c], sums[c])
		}
		if shift <= kmeansTolerance*kmeansTolerance {
			break
		}
	}

	inertia := assign(points, centroids, labels)
	return Clustering{Labels: labels, Centroids: centroids, Inertia: inertia}
}

// assign labels every point with its nearest centroid and returns the inertia.
func assign(points, centroids [][]float64, labels []int) float64 {
	var inertia float64
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := squaredDistance(p, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
		inertia += bestDist
	}
	return inertia
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
