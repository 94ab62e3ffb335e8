package rank

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxIterations is the iteration cap used when none is configured.
	DefaultMaxIterations = 1000

	// parallelThreshold is the matrix size from which a step is split
	// across workers.
	parallelThreshold = 256
)

// Engine runs power iteration over a damped transition matrix.
// An Engine holds no per-run state and may be reused.
type Engine struct {
	maxIterations int
	workers       int
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxIterations sets the iteration cap. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithWorkers sets how many goroutines compute one step on large matrices.
// Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger used to report iteration progress.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		maxIterations: DefaultMaxIterations,
		workers:       runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Result is the outcome of Iterate.
type Result struct {
	// Vector holds one score per index position. It sums to 1.
	Vector []float64

	// Iterations is the number of steps performed.
	Iterations int

	// Delta is the L1 distance between the last two vectors.
	Delta float64

	// Converged reports whether Delta < epsilon.
	Converged bool
}

// Sum returns the sum of the vector entries.
func (r *Result) Sum() float64 {
	var sum float64
	for _, v := range r.Vector {
		sum += v
	}
	return sum
}

// Iterate damps m with alpha and runs power iteration from the uniform
// vector until the L1 delta is strictly below epsilon.
//
// If the iteration cap is reached first, the best-effort result is returned
// with Converged set to false together with a *ConvergenceError.
// The context is checked between steps.
func (e *Engine) Iterate(ctx context.Context, m *Matrix, alpha, epsilon float64) (*Result, error) {
	if !(epsilon > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidEpsilon, epsilon)
	}
	g, err := m.Damp(alpha)
	if err != nil {
		return nil, err
	}

	n := g.Len()
	if n == 0 {
		return &Result{Vector: []float64{}, Converged: true}, nil
	}

	prev := make([]float64, n)
	next := make([]float64, n)
	for i := range prev {
		prev[i] = 1 / float64(n)
	}

	res := &Result{}
	for res.Iterations < e.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("rank iteration stopped after %d steps: %w", res.Iterations, err)
		}

		e.step(g, prev, next)
		res.Iterations++
		res.Delta = l1Distance(prev, next)
		prev, next = next, prev

		if res.Delta < epsilon {
			res.Converged = true
			break
		}
	}
	res.Vector = prev

	e.logger.Debug("power iteration finished",
		"pages", n,
		"iterations", res.Iterations,
		"delta", res.Delta,
		"converged", res.Converged,
	)

	if !res.Converged {
		return res, &ConvergenceError{
			Iterations: res.Iterations,
			Delta:      res.Delta,
			Epsilon:    epsilon,
		}
	}
	return res, nil
}

// step writes g^T * prev into next. Every next[i] only reads prev, so
// index ranges can be computed independently.
func (e *Engine) step(g *Matrix, prev, next []float64) {
	n := g.Len()
	if n < parallelThreshold || e.workers < 2 {
		multiplyRange(g, prev, next, 0, n)
		return
	}

	chunk := (n + e.workers - 1) / e.workers
	var eg errgroup.Group
	eg.SetLimit(e.workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		eg.Go(func() error {
			multiplyRange(g, prev, next, lo, hi)
			return nil
		})
	}
	_ = eg.Wait() // multiplyRange never fails; Wait is the barrier.
}

func multiplyRange(g *Matrix, prev, next []float64, lo, hi int) {
	n := g.Len()
	for i := lo; i < hi; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += prev[j] * g.cells[j*n+i]
		}
		next[i] = sum
	}
}

func l1Distance(a, b []float64) float64 {
	var d float64
	for i := range a {
		d += math.Abs(a[i] - b[i])
	}
	return d
}
