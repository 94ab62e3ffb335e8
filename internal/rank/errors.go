package rank

import (
	"errors"
	"fmt"
)

// Sentinel errors for rank computation.
var (
	// ErrInvalidAlpha is returned when the damping factor is outside (0, 1).
	ErrInvalidAlpha = errors.New("damping factor must be in the open interval (0, 1)")

	// ErrInvalidEpsilon is returned when the convergence threshold is not positive.
	ErrInvalidEpsilon = errors.New("convergence threshold must be positive")

	// ErrNotConverged is matched by *ConvergenceError.
	ErrNotConverged = errors.New("power iteration did not converge")

	// ErrLengthMismatch is returned when a rank vector does not match the index size.
	ErrLengthMismatch = errors.New("rank vector length does not match index size")
)

// ConvergenceError reports that the iteration cap was reached before the
// L1 delta dropped below epsilon.
type ConvergenceError struct {
	// Iterations is the number of steps performed.
	Iterations int

	// Delta is the L1 distance of the last step.
	Delta float64

	// Epsilon is the threshold that was not reached.
	Epsilon float64
}

// Error implements the error interface.
func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s after %d iterations (delta %g, epsilon %g)",
		ErrNotConverged.Error(), e.Iterations, e.Delta, e.Epsilon)
}

// Unwrap returns ErrNotConverged.
func (e *ConvergenceError) Unwrap() error {
	return ErrNotConverged
}
