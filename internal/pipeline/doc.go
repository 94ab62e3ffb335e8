// Package pipeline runs the stages of a crawl-and-rank run in sequence.
//
// A run goes through crawling (fill the link index), ranking (finalize the
// index, build the transition matrix, power-iterate) and persistence
// (store the ranking). Each stage is a Step that receives the run and
// fills in its part of it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows re-ranking a stored graph with the same rank and persist steps
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context between stages
package pipeline
