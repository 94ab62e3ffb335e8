package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/nao1215/pagehunter/internal/linkindex"
)

const tolerance = 1e-9

// buildIndex pushes the given graph into a finalized index.
func buildIndex(t *testing.T, graph map[string][]string) *linkindex.Index {
	t.Helper()

	idx := linkindex.New()
	for u, links := range graph {
		if err := idx.Push(u, links); err != nil {
			t.Fatalf("Push(%q) error = %v", u, err)
		}
	}
	if err := idx.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return idx
}

func scoresByURL(t *testing.T, idx *linkindex.Index, vector []float64) map[string]float64 {
	t.Helper()

	urls := idx.OrderedURLs()
	if len(urls) != len(vector) {
		t.Fatalf("vector length %d, want %d", len(vector), len(urls))
	}
	scores := make(map[string]float64, len(urls))
	for i, u := range urls {
		scores[u] = vector[i]
	}
	return scores
}

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// TestBuild tests transition matrix construction.
func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("rejects an index that is not finalized", func(t *testing.T) {
		t.Parallel()

		idx := linkindex.New()
		if err := idx.Push("https://a.example/", nil); err != nil {
			t.Fatal(err)
		}

		_, err := Build(idx)
		if !errors.Is(err, linkindex.ErrInvalidOrder) {
			t.Errorf("expected ErrInvalidOrder, got %v", err)
		}
	})

	t.Run("empty index builds an empty matrix", func(t *testing.T) {
		t.Parallel()

		m, err := Build(buildIndex(t, nil))
		if err != nil {
			t.Fatal(err)
		}
		if m.Len() != 0 {
			t.Errorf("expected empty matrix, got %d", m.Len())
		}
	})

	t.Run("every row sums to one", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			graph map[string][]string
		}{
			{
				name: "cycle",
				graph: map[string][]string{
					"A": {"B"},
					"B": {"C"},
					"C": {"A"},
				},
			},
			{
				name: "dangling and out-of-index links",
				graph: map[string][]string{
					"A": {"B", "C", "https://elsewhere.example/"},
					"B": {"https://elsewhere.example/"},
					"C": nil,
				},
			},
			{
				name: "repeated links and self links",
				graph: map[string][]string{
					"A": {"B", "B", "A", "C"},
					"B": {"A", "A"},
					"C": {"C"},
					"D": {"A", "B", "C"},
				},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				m, err := Build(buildIndex(t, tt.graph))
				if err != nil {
					t.Fatal(err)
				}
				for i := range m.Len() {
					if sum := m.RowSum(i); !approxEqual(sum, 1, tolerance) {
						t.Errorf("row %d sums to %v", i, sum)
					}
				}
			})
		}
	})

	t.Run("repeated targets count once", func(t *testing.T) {
		t.Parallel()

		idx := buildIndex(t, map[string][]string{
			"A": {"B", "B", "A", "C", "https://outside.example/"},
			"B": {"A"},
			"C": {"A"},
		})
		m, err := Build(idx)
		if err != nil {
			t.Fatal(err)
		}

		// Order is A, B, C.
		want := []float64{0, 0.5, 0.5}
		for j, w := range want {
			if got := m.At(0, j); !approxEqual(got, w, tolerance) {
				t.Errorf("M[A][%d] = %v, want %v", j, got, w)
			}
		}
	})

	t.Run("dangling row is uniform", func(t *testing.T) {
		t.Parallel()

		idx := buildIndex(t, map[string][]string{
			"A": {"B"},
			"B": nil,
		})
		m, err := Build(idx)
		if err != nil {
			t.Fatal(err)
		}

		row := m.Row(1)
		if !approxEqual(row[0], 0.5, tolerance) || !approxEqual(row[1], 0.5, tolerance) {
			t.Errorf("dangling row = %v, want [0.5 0.5]", row)
		}
		row[0] = 42
		if m.At(1, 0) == 42 {
			t.Error("Row must return a copy")
		}
	})

	t.Run("nonzero cells follow the indexed out-degree", func(t *testing.T) {
		t.Parallel()

		idx := buildIndex(t, map[string][]string{
			"A": {"A", "B", "B", "C", "outside"},
			"B": {"C", "outside"},
			"C": {"A"},
		})
		m, err := Build(idx)
		if err != nil {
			t.Fatal(err)
		}

		for i, u := range idx.OrderedURLs() {
			degree := idx.IndexedOutDegree(u)
			nonzero := 0
			for _, v := range m.Row(i) {
				if v != 0 {
					nonzero++
					if !approxEqual(v, 1/float64(degree), tolerance) {
						t.Errorf("%s: cell = %v, want %v", u, v, 1/float64(degree))
					}
				}
			}
			if nonzero != degree {
				t.Errorf("%s: %d nonzero cells, want %d", u, nonzero, degree)
			}
		}
	})
}

// TestDamp tests the Google matrix transform.
func TestDamp(t *testing.T) {
	t.Parallel()

	m, err := Build(buildIndex(t, map[string][]string{
		"A": {"B", "C"},
		"B": {"C"},
		"C": nil,
		"D": {"A"},
	}))
	if err != nil {
		t.Fatal(err)
	}

	for _, alpha := range []float64{0.01, 0.5, 0.85, 0.99} {
		t.Run(fmt.Sprintf("alpha=%v", alpha), func(t *testing.T) {
			t.Parallel()

			g, err := m.Damp(alpha)
			if err != nil {
				t.Fatal(err)
			}
			for i := range g.Len() {
				if sum := g.RowSum(i); !approxEqual(sum, 1, tolerance) {
					t.Errorf("row %d sums to %v", i, sum)
				}
			}
			want := alpha*m.At(0, 1) + (1-alpha)/4
			if got := g.At(0, 1); !approxEqual(got, want, tolerance) {
				t.Errorf("G[0][1] = %v, want %v", got, want)
			}
		})
	}

	t.Run("invalid alpha", func(t *testing.T) {
		t.Parallel()

		for _, alpha := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
			if _, err := m.Damp(alpha); !errors.Is(err, ErrInvalidAlpha) {
				t.Errorf("Damp(%v) error = %v, want ErrInvalidAlpha", alpha, err)
			}
		}
	})
}

// TestIterateScenarios tests the reference ranking scenarios.
func TestIterateScenarios(t *testing.T) {
	t.Parallel()

	const (
		alpha   = 0.85
		epsilon = 1e-6
	)

	tests := []struct {
		name  string
		graph map[string][]string
		check func(t *testing.T, scores map[string]float64)
	}{
		{
			name: "three cycle ranks equally",
			graph: map[string][]string{
				"A": {"B"},
				"B": {"C"},
				"C": {"A"},
			},
			check: func(t *testing.T, scores map[string]float64) {
				for u, s := range scores {
					if !approxEqual(s, 1.0/3, 1e-6) {
						t.Errorf("score[%s] = %v, want 1/3", u, s)
					}
				}
			},
		},
		{
			name: "dangling node keeps the distribution",
			graph: map[string][]string{
				"A": {"B"},
				"B": nil,
			},
			check: func(t *testing.T, scores map[string]float64) {
				if scores["B"] <= scores["A"] {
					t.Errorf("expected B to outrank A, got %v", scores)
				}
			},
		},
		{
			name: "star center wins",
			graph: map[string][]string{
				"A": nil,
				"B": {"A"},
				"C": {"A"},
				"D": {"A"},
			},
			check: func(t *testing.T, scores map[string]float64) {
				for _, u := range []string{"B", "C", "D"} {
					if scores["A"] <= scores[u] {
						t.Errorf("expected A (%v) > %s (%v)", scores["A"], u, scores[u])
					}
				}
			},
		},
		{
			name: "isolated pair splits evenly",
			graph: map[string][]string{
				"A": nil,
				"B": nil,
			},
			check: func(t *testing.T, scores map[string]float64) {
				for u, s := range scores {
					if !approxEqual(s, 0.5, 1e-6) {
						t.Errorf("score[%s] = %v, want 0.5", u, s)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			idx := buildIndex(t, tt.graph)
			m, err := Build(idx)
			if err != nil {
				t.Fatal(err)
			}

			res, err := NewEngine().Iterate(context.Background(), m, alpha, epsilon)
			if err != nil {
				t.Fatalf("Iterate() error = %v", err)
			}
			if !res.Converged {
				t.Error("expected convergence")
			}
			if res.Delta >= epsilon {
				t.Errorf("delta %v not below epsilon", res.Delta)
			}
			if sum := res.Sum(); !approxEqual(sum, 1, tolerance) {
				t.Errorf("vector sums to %v", sum)
			}
			tt.check(t, scoresByURL(t, idx, res.Vector))
		})
	}
}

// TestIterate tests engine behavior outside the ranking scenarios.
func TestIterate(t *testing.T) {
	t.Parallel()

	graph := map[string][]string{
		"A": {"B", "C"},
		"B": {"C"},
		"C": {"A"},
		"D": {"C"},
		"E": nil,
	}

	t.Run("repeated runs agree within epsilon", func(t *testing.T) {
		t.Parallel()

		m, err := Build(buildIndex(t, graph))
		if err != nil {
			t.Fatal(err)
		}

		engine := NewEngine()
		first, err := engine.Iterate(context.Background(), m, 0.85, 1e-6)
		if err != nil {
			t.Fatal(err)
		}
		second, err := engine.Iterate(context.Background(), m, 0.85, 1e-6)
		if err != nil {
			t.Fatal(err)
		}
		if d := l1Distance(first.Vector, second.Vector); d >= 1e-6 {
			t.Errorf("runs differ by %v", d)
		}
	})

	t.Run("iteration cap returns best effort and ConvergenceError", func(t *testing.T) {
		t.Parallel()

		m, err := Build(buildIndex(t, graph))
		if err != nil {
			t.Fatal(err)
		}

		res, err := NewEngine(WithMaxIterations(2)).Iterate(context.Background(), m, 0.85, 1e-12)
		if !errors.Is(err, ErrNotConverged) {
			t.Fatalf("expected ErrNotConverged, got %v", err)
		}
		var convErr *ConvergenceError
		if !errors.As(err, &convErr) {
			t.Fatalf("expected *ConvergenceError, got %T", err)
		}
		if convErr.Iterations != 2 {
			t.Errorf("expected 2 iterations, got %d", convErr.Iterations)
		}
		if res == nil || res.Converged {
			t.Fatal("expected a non-converged result")
		}
		if sum := res.Sum(); !approxEqual(sum, 1, tolerance) {
			t.Errorf("best-effort vector sums to %v", sum)
		}
	})

	t.Run("cancelled context stops iteration", func(t *testing.T) {
		t.Parallel()

		m, err := Build(buildIndex(t, graph))
		if err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := NewEngine().Iterate(ctx, m, 0.85, 1e-6); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("invalid parameters", func(t *testing.T) {
		t.Parallel()

		m, err := Build(buildIndex(t, graph))
		if err != nil {
			t.Fatal(err)
		}

		engine := NewEngine()
		if _, err := engine.Iterate(context.Background(), m, 0.85, 0); !errors.Is(err, ErrInvalidEpsilon) {
			t.Errorf("expected ErrInvalidEpsilon, got %v", err)
		}
		if _, err := engine.Iterate(context.Background(), m, 1, 1e-6); !errors.Is(err, ErrInvalidAlpha) {
			t.Errorf("expected ErrInvalidAlpha, got %v", err)
		}
	})

	t.Run("empty matrix converges immediately", func(t *testing.T) {
		t.Parallel()

		m, err := Build(buildIndex(t, nil))
		if err != nil {
			t.Fatal(err)
		}

		res, err := NewEngine().Iterate(context.Background(), m, 0.85, 1e-6)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Converged || len(res.Vector) != 0 {
			t.Errorf("unexpected result %+v", res)
		}
	})
}

// TestIterateParallel checks that splitting a step across workers gives the
// same vector as a single worker.
func TestIterateParallel(t *testing.T) {
	t.Parallel()

	const n = 300
	graph := make(map[string][]string, n)
	for i := range n {
		graph[fmt.Sprintf("https://example.com/%03d", i)] = []string{
			fmt.Sprintf("https://example.com/%03d", (i*7+3)%n),
			fmt.Sprintf("https://example.com/%03d", (i*13+1)%n),
		}
	}
	for i := 0; i < n; i += 10 {
		graph[fmt.Sprintf("https://example.com/%03d", i)] = nil
	}

	m, err := Build(buildIndex(t, graph))
	if err != nil {
		t.Fatal(err)
	}

	serial, err := NewEngine(WithWorkers(1)).Iterate(context.Background(), m, 0.85, 1e-8)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := NewEngine(WithWorkers(4)).Iterate(context.Background(), m, 0.85, 1e-8)
	if err != nil {
		t.Fatal(err)
	}

	if serial.Iterations != parallel.Iterations {
		t.Errorf("iterations differ: %d vs %d", serial.Iterations, parallel.Iterations)
	}
	if d := l1Distance(serial.Vector, parallel.Vector); d > 1e-12 {
		t.Errorf("vectors differ by %v", d)
	}
	if sum := parallel.Sum(); !approxEqual(sum, 1, tolerance) {
		t.Errorf("vector sums to %v", sum)
	}
}

// TestRankedResult tests sorting and display rounding.
func TestRankedResult(t *testing.T) {
	t.Parallel()

	idx := buildIndex(t, map[string][]string{
		"https://c.example/": nil,
		"https://a.example/": nil,
		"https://b.example/": nil,
	})

	t.Run("sorts by score then URL", func(t *testing.T) {
		t.Parallel()

		// Positions are a, b, c.
		pages, err := RankedResult(idx, []float64{0.25, 0.5, 0.25})
		if err != nil {
			t.Fatal(err)
		}

		want := []string{"https://b.example/", "https://a.example/", "https://c.example/"}
		for i, w := range want {
			if pages[i].URL != w {
				t.Errorf("pages[%d] = %s, want %s", i, pages[i].URL, w)
			}
		}
		if pages[0].Score != 0.5 || pages[0].Display != 0.5 {
			t.Errorf("unexpected first page %+v", pages[0])
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		t.Parallel()

		if _, err := RankedResult(idx, []float64{1}); !errors.Is(err, ErrLengthMismatch) {
			t.Errorf("expected ErrLengthMismatch, got %v", err)
		}
	})

	t.Run("index must be finalized", func(t *testing.T) {
		t.Parallel()

		open := linkindex.New()
		if _, err := RankedResult(open, nil); !errors.Is(err, linkindex.ErrInvalidOrder) {
			t.Errorf("expected ErrInvalidOrder, got %v", err)
		}
	})
}

// TestRound tests display rounding.
func TestRound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		score   float64
		epsilon float64
		want    float64
	}{
		{name: "rounds up to the epsilon grid", score: 0.1234567, epsilon: 1e-6, want: 0.123457},
		{name: "never rounds below the raw score", score: 0.3333333, epsilon: 1e-6, want: 0.3333333},
		{name: "exact grid value is kept", score: 0.25, epsilon: 1e-6, want: 0.25},
		{name: "non-positive epsilon keeps score", score: 0.1234567, epsilon: 0, want: 0.1234567},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Round(tt.score, tt.epsilon); !approxEqual(got, tt.want, 1e-12) {
				t.Errorf("Round(%v, %v) = %v, want %v", tt.score, tt.epsilon, got, tt.want)
			}
		})
	}
}
