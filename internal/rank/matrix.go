package rank

import (
	"fmt"

	"github.com/nao1215/pagehunter/internal/linkindex"
)

// Matrix is a dense N x N matrix of non-negative reals.
// Rows and columns are positions in the finalized index order; no URL is
// stored in the matrix.
type Matrix struct {
	n     int
	cells []float64
}

func newMatrix(n int) *Matrix {
	return &Matrix{n: n, cells: make([]float64, n*n)}
}

// Build constructs the transition matrix of a finalized index.
// It returns an error matching linkindex.ErrInvalidOrder when the index has
// not been finalized.
func Build(idx *linkindex.Index) (*Matrix, error) {
	if !idx.Finalized() {
		return nil, &linkindex.InvalidOrderError{
			Op:     "build",
			Reason: "index must be finalized before matrix construction",
		}
	}

	urls := idx.OrderedURLs()
	n := len(urls)
	position := make(map[string]int, n)
	for i, u := range urls {
		position[u] = i
	}

	m := newMatrix(n)
	for i, u := range urls {
		row := m.cells[i*n : (i+1)*n]
		degree := idx.IndexedOutDegree(u)
		if degree == 0 {
			// Dangling node: jump anywhere.
			uniform := 1 / float64(n)
			for j := range row {
				row[j] = uniform
			}
			continue
		}
		w := 1 / float64(degree)
		for _, link := range idx.OutboundLinksOf(u) {
			// Repeated links land on the same cell.
			if j, ok := position[link]; ok && j != i {
				row[j] = w
			}
		}
	}
	return m, nil
}

// Len returns N.
func (m *Matrix) Len() int {
	return m.n
}

// At returns cell (i, j).
func (m *Matrix) At(i, j int) float64 {
	return m.cells[i*m.n+j]
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	row := make([]float64, m.n)
	copy(row, m.cells[i*m.n:(i+1)*m.n])
	return row
}

// RowSum returns the sum of row i.
func (m *Matrix) RowSum(i int) float64 {
	var sum float64
	for _, v := range m.cells[i*m.n : (i+1)*m.n] {
		sum += v
	}
	return sum
}

// Damp returns the Google matrix alpha*M + (1-alpha)/N.
// The receiver is not modified.
func (m *Matrix) Damp(alpha float64) (*Matrix, error) {
	if err := validateAlpha(alpha); err != nil {
		return nil, err
	}

	g := newMatrix(m.n)
	if m.n == 0 {
		return g, nil
	}
	jump := (1 - alpha) / float64(m.n)
	for k, v := range m.cells {
		g.cells[k] = alpha*v + jump
	}
	return g, nil
}

func validateAlpha(alpha float64) error {
	// The negated form also rejects NaN.
	if !(alpha > 0 && alpha < 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	return nil
}
