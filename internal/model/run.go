package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/pagehunter/internal/linkindex"
)

// Run is the state and result of one crawl-and-rank run.
// Pipeline steps fill it in order: the crawl step populates Graph and the
// crawl counters, the rank step sets Rankings and the convergence fields.
type Run struct {
	// ID uniquely identifies the run. It is the primary key of the stored run.
	ID string `json:"id"`

	// Seeds are the URLs the crawl started from.
	Seeds []string `json:"seeds"`

	// StartedAt is when the run was created.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when ranking completed. Zero until then.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Alpha is the damping factor used for ranking.
	Alpha float64 `json:"alpha"`

	// Epsilon is the convergence threshold used for ranking.
	Epsilon float64 `json:"epsilon"`

	// Iterations is the number of power-iteration steps performed.
	Iterations int `json:"iterations"`

	// Delta is the L1 distance between the last two rank vectors.
	Delta float64 `json:"delta"`

	// Converged reports whether Delta dropped below Epsilon.
	Converged bool `json:"converged"`

	// Pages is the number of ranked pages.
	Pages int `json:"pages"`

	// Dispatched is the number of page visits started by the crawler.
	Dispatched int `json:"dispatched"`

	// Indexed is the number of pages added to the link graph.
	Indexed int `json:"indexed"`

	// Failed is the number of visits that could not be fetched or parsed.
	Failed int `json:"failed"`

	// Duplicates is the number of visits that resolved to an indexed page.
	Duplicates int `json:"duplicates"`

	// Disallowed is the number of URLs skipped because of robots.txt.
	Disallowed int `json:"disallowed"`

	// Rankings is the ranked page list, highest score first.
	Rankings []RankedPage `json:"rankings"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the error that stopped the run, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as text, kept for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// TimedOut is set when the run was cancelled before completing.
	TimedOut bool `json:"timed_out,omitempty"`

	// Graph is the link index built by the crawl.
	Graph *linkindex.Index `json:"-"`
}

// NewRun creates a Run with a fresh ID and an empty link graph.
func NewRun(seeds []string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Seeds:     seeds,
		StartedAt: time.Now(),
		Rankings:  make([]RankedPage, 0),
		Graph:     linkindex.New(),
	}
}

// Top returns at most n rankings. n <= 0 returns all of them.
func (r *Run) Top(n int) []RankedPage {
	if n <= 0 || n >= len(r.Rankings) {
		return r.Rankings
	}
	return r.Rankings[:n]
}

// Elapsed returns how long the run took, or 0 if it has not finished.
func (r *Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
