// Package rank computes PageRank scores over a finalized link index.
//
// # Algorithm
//
// Build turns the index into a dense row-stochastic transition matrix M.
// Cell (i, j) is 1/outdegree(i) when page i links to page j, where the
// outdegree only counts distinct targets that are themselves indexed and
// are not i. A row with no such target is a dangling node and is replaced
// by the uniform distribution 1/N, so every row sums to 1.
//
// Damp derives the Google matrix G = alpha*M + (1-alpha)/N. Engine.Iterate
// runs power iteration on G from the uniform vector until the L1 distance
// between two successive vectors is strictly below epsilon:
//
//	next[i] = sum over j of prev[j] * G[j][i]
//
// The iteration is bounded by a maximum step count. When the cap is hit the
// best-effort vector is returned together with a *ConvergenceError.
//
// # Usage
//
//	idx.Finalize()
//	m, err := rank.Build(idx)
//	res, err := rank.NewEngine().Iterate(ctx, m, 0.85, 1e-6)
//	pages, err := rank.RankedResult(idx, res.Vector)
//
// The matrix is dense, which is fine for the crawl budgets this tool is
// used with. Graphs of many thousands of pages would need a sparse
// representation.
package rank
