package forecast

import (
	"fmt"
	"math/rand"
	"sort"

	"DemandCast/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// GradientBoosting is an additive ensemble of regression trees fitted
// stage-wise to squared-error residuals.
type GradientBoosting struct {
	Params      models.Hyperparams `json:"params"`
	NumFeatures int                `json:"num_features"`
	Init        float64            `json:"init"`
	Trees       []Tree             `json:"trees"`
}

// ValidateHyperparams rejects settings the fitter cannot honour.
func ValidateHyperparams(p models.Hyperparams) error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("n_estimators must be >= 1, got %d: %w", p.NEstimators, models.ErrInvalidArgument)
	case p.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be > 0, got %g: %w", p.LearningRate, models.ErrInvalidArgument)
	case p.MaxDepth < 1:
		return fmt.Errorf("max_depth must be >= 1, got %d: %w", p.MaxDepth, models.ErrInvalidArgument)
	case p.MinSamplesSplit < 2:
		return fmt.Errorf("min_samples_split must be >= 2, got %d: %w", p.MinSamplesSplit, models.ErrInvalidArgument)
	case p.MinSamplesLeaf < 1:
		return fmt.Errorf("min_samples_leaf must be >= 1, got %d: %w", p.MinSamplesLeaf, models.ErrInvalidArgument)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %g: %w", p.Subsample, models.ErrInvalidArgument)
	}
	return nil
}

// FitGradientBoosting trains the ensemble on x (already scaled) against y.
// The result depends only on the inputs and p.Seed.
func FitGradientBoosting(x [][]float64, y []float64, p models.Hyperparams) (*GradientBoosting, error) {
	if err := ValidateHyperparams(p); err != nil {
		return nil, err
	}
	n := len(x)
	if n < 2 {
		return nil, fmt.Errorf("fit ensemble on %d rows: %w", n, models.ErrInsufficientData)
	}
	if len(y) != n {
		return nil, fmt.Errorf("fit ensemble: %d rows but %d targets: %w", n, len(y), models.ErrInvalidArgument)
	}
	width := len(x[0])
	for i, r := range x {
		if len(r) != width {
			return nil, fmt.Errorf("fit ensemble: row %d has %d columns, want %d: %w", i, len(r), width, models.ErrInvalidArgument)
		}
	}

	presorted := presort(x, width)
	g := &GradientBoosting{
		Params:      p,
		NumFeatures: width,
		Init:        stat.Mean(y, nil),
		Trees:       make([]Tree, 0, p.NEstimators),
	}

	current := make([]float64, n)
	for i := range current {
		current[i] = g.Init
	}
	residual := make([]float64, n)
	builder := newTreeBuilder(x, p.MaxDepth, p.MinSamplesSplit, p.MinSamplesLeaf)
	rng := rand.New(rand.NewSource(p.Seed))
	inBag := make([]bool, n)

	for m := 0; m < p.NEstimators; m++ {
		for i := range residual {
			residual[i] = y[i] - current[i]
		}
		sorted := presorted
		if p.Subsample < 1 {
			sorted = subsample(presorted, rng, inBag, p.Subsample)
		}
		tree := builder.fit(residual, sorted)
		for i := range current {
			current[i] += p.LearningRate * tree.Predict(x[i])
		}
		g.Trees = append(g.Trees, tree)
	}
	return g, nil
}

func presort(x [][]float64, width int) [][]int {
	out := make([][]int, width)
	for f := 0; f < width; f++ {
		order := make([]int, len(x))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return x[order[a]][f] < x[order[b]][f]
		})
		out[f] = order
	}
	return out
}

func subsample(presorted [][]int, rng *rand.Rand, inBag []bool, fraction float64) [][]int {
	n := len(inBag)
	k := int(fraction * float64(n))
	if k < 2 {
		k = 2
	}
	for i := range inBag {
		inBag[i] = false
	}
	for _, i := range rng.Perm(n)[:k] {
		inBag[i] = true
	}
	out := make([][]int, len(presorted))
	for f, order := range presorted {
		sel := make([]int, 0, k)
		for _, i := range order {
			if inBag[i] {
				sel = append(sel, i)
			}
		}
		out[f] = sel
	}
	return out
}

// Predict returns the ensemble output for one scaled row.
func (g *GradientBoosting) Predict(x []float64) float64 {
	out := g.Init
	for i := range g.Trees {
		out += g.Params.LearningRate * g.Trees[i].Predict(x)
	}
	return out
}

// PredictAll predicts every row of x.
func (g *GradientBoosting) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, r := range x {
		out[i] = g.Predict(r)
	}
	return out
}

// Score is the coefficient of determination of the ensemble on (x, y).
func (g *GradientBoosting) Score(x [][]float64, y []float64) float64 {
	return R2(y, g.PredictAll(x))
}

func (g *GradientBoosting) validate(width int) error {
	if g == nil {
		return fmt.Errorf("ensemble missing")
	}
	if g.NumFeatures != width {
		return fmt.Errorf("ensemble fitted on %d features, want %d", g.NumFeatures, width)
	}
	if err := ValidateHyperparams(g.Params); err != nil {
		return err
	}
	if len(g.Trees) != g.Params.NEstimators {
		return fmt.Errorf("ensemble has %d trees, want %d", len(g.Trees), g.Params.NEstimators)
	}
	for i := range g.Trees {
		if err := g.Trees[i].validate(width); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
