// Package iforest implements a seeded isolation forest for batch outlier
// labelling.
//
// A forest is fit once on a full batch and then scores the same batch. Trees
// split on a uniformly chosen non-constant feature at a uniform point between
// that feature's minimum and maximum. The outlier cut is the
// (1 - contamination) percentile of the batch scores, so roughly a
// contamination fraction of the batch is labelled as outliers.
package iforest

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/bartekus/cadence/internal/stats"
)

// Defaults mirror the usual isolation forest settings.
const (
	DefaultTrees         = 100
	DefaultContamination = 0.1
	DefaultMaxSamples    = 256
	DefaultSeed          = 42
)

const eulerGamma = 0.5772156649015329

// Options configures a forest.
type Options struct {
	Trees         int
	Contamination float64
	// MaxSamples caps the sub-sample drawn for each tree; the batch size is
	// used when it is smaller.
	MaxSamples int
	Seed       uint64
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		Trees:         DefaultTrees,
		Contamination: DefaultContamination,
		MaxSamples:    DefaultMaxSamples,
		Seed:          DefaultSeed,
	}
}

func (o Options) validate() error {
	switch {
	case o.Trees < 1:
		return errors.New("iforest: trees must be at least 1")
	case o.Contamination <= 0 || o.Contamination > 0.5:
		return errors.New("iforest: contamination must be in (0, 0.5]")
	case o.MaxSamples < 1:
		return errors.New("iforest: max samples must be at least 1")
	}
	return nil
}

// Result holds per-row scores and labels for a fitted batch.
type Result struct {
	// Scores are anomaly scores in (0, 1]; higher is more anomalous.
	Scores []float64
	// Outliers marks rows whose score is above Threshold.
	Outliers  []bool
	Threshold float64
}

// FitPredict fits a forest on rows and labels every row. All rows must have
// the same number of columns. The result depends only on rows and opts.
func FitPredict(rows [][]float64, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	n := len(rows)
	if n == 0 {
		return Result{}, nil
	}
	width := len(rows[0])
	for _, r := range rows {
		if len(r) != width {
			return Result{}, errors.New("iforest: rows have different widths")
		}
	}

	sampleSize := min(opts.MaxSamples, n)
	heightLimit := int(math.Ceil(math.Log2(float64(max(sampleSize, 2)))))
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	trees := make([]*node, opts.Trees)
	for i := range trees {
		idx := sample(rng, n, sampleSize)
		trees[i] = grow(rng, rows, idx, 0, heightLimit)
	}

	res := Result{
		Scores:   make([]float64, n),
		Outliers: make([]bool, n),
	}

	norm := averagePathLength(sampleSize)
	for i, r := range rows {
		if norm == 0 {
			res.Scores[i] = 0.5
			continue
		}
		var total float64
		for _, t := range trees {
			total += t.pathLength(r, 0)
		}
		res.Scores[i] = math.Pow(2, -(total/float64(len(trees)))/norm)
	}

	res.Threshold = stats.Percentile(res.Scores, 100*(1-opts.Contamination))
	for i, s := range res.Scores {
		res.Outliers[i] = s > res.Threshold
	}
	return res, nil
}

type node struct {
	feature int
	split   float64
	left    *node
	right   *node
	size    int
}

func (n *node) leaf() bool { return n.left == nil }

func (n *node) pathLength(x []float64, depth int) float64 {
	if n.leaf() {
		return float64(depth) + averagePathLength(n.size)
	}
	if x[n.feature] < n.split {
		return n.left.pathLength(x, depth+1)
	}
	return n.right.pathLength(x, depth+1)
}

func grow(rng *rand.Rand, rows [][]float64, idx []int, depth, limit int) *node {
	if depth >= limit || len(idx) <= 1 {
		return &node{size: len(idx)}
	}

	type span struct {
		feature  int
		lo, high float64
	}
	var candidates []span
	for f := range rows[idx[0]] {
		lo, hi := rows[idx[0]][f], rows[idx[0]][f]
		for _, i := range idx[1:] {
			lo = math.Min(lo, rows[i][f])
			hi = math.Max(hi, rows[i][f])
		}
		if hi > lo {
			candidates = append(candidates, span{feature: f, lo: lo, high: hi})
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(idx)}
	}

	c := candidates[rng.IntN(len(candidates))]
	split := c.lo + rng.Float64()*(c.high-c.lo)
	if split <= c.lo {
		split = math.Nextafter(c.lo, c.high)
	}

	var left, right []int
	for _, i := range idx {
		if rows[i][c.feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature: c.feature,
		split:   split,
		left:    grow(rng, rows, left, depth+1, limit),
		right:   grow(rng, rows, right, depth+1, limit),
		size:    len(idx),
	}
}

// sample draws k distinct row indices out of n.
func sample(rng *rand.Rand, n, k int) []int {
	perm := rng.Perm(n)
	return perm[:k]
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n - 1)
	return 2*(math.Log(m)+eulerGamma) - 2*m/float64(n)
}
