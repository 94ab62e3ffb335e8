package model

// RankedPage is one entry of a ranking.
type RankedPage struct {
	// URL is the canonical page URL.
	URL string `json:"url"`

	// Score is the raw stationary probability of the page.
	// Scores of a complete ranking sum to 1.
	Score float64 `json:"score"`

	// Display is Score rounded for presentation.
	// Use Score for any further computation.
	Display float64 `json:"display"`
}

// ScoreSum returns the sum of the raw scores.
func ScoreSum(pages []RankedPage) float64 {
	var sum float64
	for _, p := range pages {
		sum += p.Score
	}
	return sum
}
