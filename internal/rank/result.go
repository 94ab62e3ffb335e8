package rank

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/nao1215/pagehunter/internal/linkindex"
	"github.com/nao1215/pagehunter/internal/model"
)

// RankedResult pairs the finalized URL order of idx with vector and sorts
// the pairs by descending score. Equal scores are ordered by URL.
// Display is left equal to Score; use Round to fill it for presentation.
func RankedResult(idx *linkindex.Index, vector []float64) ([]model.RankedPage, error) {
	if !idx.Finalized() {
		return nil, &linkindex.InvalidOrderError{
			Op:     "ranked result",
			Reason: "index must be finalized before ranking",
		}
	}
	urls := idx.OrderedURLs()
	if len(urls) != len(vector) {
		return nil, fmt.Errorf("%w: %d urls, %d scores", ErrLengthMismatch, len(urls), len(vector))
	}

	pages := make([]model.RankedPage, len(urls))
	for i, u := range urls {
		pages[i] = model.RankedPage{URL: u, Score: vector[i], Display: vector[i]}
	}
	slices.SortFunc(pages, func(a, b model.RankedPage) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.URL, b.URL)
	})
	return pages, nil
}

// Round rounds score to the nearest multiple of epsilon for display.
// The result is never below score. A non-positive epsilon returns score.
func Round(score, epsilon float64) float64 {
	if !(epsilon > 0) {
		return score
	}
	factor := math.Round(1 / epsilon)
	if factor < 1 {
		return score
	}
	return math.Max(math.Round(score*factor)/factor, score)
}

// ApplyDisplay sets Display of every page to Round(Score, epsilon).
func ApplyDisplay(pages []model.RankedPage, epsilon float64) {
	for i := range pages {
		pages[i].Display = Round(pages[i].Score, epsilon)
	}
}
