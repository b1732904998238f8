package anomaly

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
)

const eulerGamma = 0.5772156649015329

// IsolationForest isolates points with random axis splits; points isolated
// in few splits are outliers. The input is one-dimensional.
type IsolationForest struct {
	Trees         int
	MaxSamples    int
	Seed          uint64
	Contamination float64
}

// NewIsolationForest returns a forest with 100 trees, 256 samples per tree
// and a fixed seed.
func NewIsolationForest(contamination float64) (*IsolationForest, error) {
	if err := ValidateContamination(contamination); err != nil {
		return nil, err
	}
	return &IsolationForest{
		Trees:         100,
		MaxSamples:    256,
		Seed:          42,
		Contamination: contamination,
	}, nil
}

func (f *IsolationForest) Name() string { return "isolation-forest" }

// FitPredict scores every value and marks those whose score is strictly
// above the (1 - contamination) percentile of all scores. The percentile
// interpolates between neighbouring scores, so even a short page can have
// its most isolated value flagged.
func (f *IsolationForest) FitPredict(ctx context.Context, values []float64) ([]Verdict, error) {
	if err := ValidateContamination(f.Contamination); err != nil {
		return nil, err
	}
	verdicts := make([]Verdict, len(values))
	if len(values) < 2 {
		return verdicts, nil
	}

	scores, err := f.Scores(ctx, values)
	if err != nil {
		return nil, err
	}

	sorted := slices.Clone(scores)
	slices.Sort(sorted)
	threshold := percentile(sorted, 1-f.Contamination)

	for i, s := range scores {
		verdicts[i] = Verdict{Score: s, Anomalous: s > threshold}
	}
	return verdicts, nil
}

// Scores builds the forest on values and returns the anomaly score
// 2^(-E[h(x)]/c(psi)) of each value.
func (f *IsolationForest) Scores(ctx context.Context, values []float64) ([]float64, error) {
	psi := min(f.MaxSamples, len(values))
	trees := max(f.Trees, 1)
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))
	rng := rand.New(rand.NewPCG(f.Seed, f.Seed^0x9e3779b97f4a7c15))

	forest := make([]*itreeNode, trees)
	sample := make([]float64, psi)
	for t := range forest {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, j := range rng.Perm(len(values))[:psi] {
			sample[i] = values[j]
		}
		forest[t] = growTree(rng, slices.Clone(sample), 0, heightLimit)
	}

	norm := averagePathLength(psi)
	scores := make([]float64, len(values))
	for i, v := range values {
		var total float64
		for _, tree := range forest {
			total += tree.pathLength(v, 0)
		}
		mean := total / float64(trees)
		scores[i] = math.Pow(2, -mean/norm)
	}
	return scores, nil
}

// percentile returns the p-quantile of sorted by linear interpolation
// between the order statistics at floor and ceil of p*(n-1).
func percentile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := min(lo+1, len(sorted)-1)
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

type itreeNode struct {
	split       float64
	left, right *itreeNode
	// size is set on leaves only.
	size int
}

func growTree(rng *rand.Rand, data []float64, depth, limit int) *itreeNode {
	if depth >= limit || len(data) <= 1 {
		return &itreeNode{size: len(data)}
	}
	lo, hi := slices.Min(data), slices.Max(data)
	if lo == hi {
		return &itreeNode{size: len(data)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range data {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &itreeNode{
		split: split,
		left:  growTree(rng, left, depth+1, limit),
		right: growTree(rng, right, depth+1, limit),
	}
}

func (n *itreeNode) pathLength(v float64, depth int) float64 {
	if n.left == nil {
		return float64(depth) + averagePathLength(n.size)
	}
	if v < n.split {
		return n.left.pathLength(v, depth+1)
	}
	return n.right.pathLength(v, depth+1)
}

// averagePathLength is c(n), the mean path length of an unsuccessful
// search in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}
