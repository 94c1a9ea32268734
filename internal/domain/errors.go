package domain

import (
	"errors"
	"fmt"
	"strings"
)

// InsufficientDataError reports fewer observations than an algorithm's
// stated minimum. Always recoverable by the caller (widen the window).
type InsufficientDataError struct {
	Observed int
	Required int
	Context  string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %d observations, need %d", e.Context, e.Observed, e.Required)
}

// MissingFieldError reports canonical statement fields that could not be
// resolved through any known column synonym.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing statement fields: %s", strings.Join(e.Fields, ", "))
}

// DegenerateInputError reports mathematically invalid input, e.g. a
// swing range with high <= low or a capital structure with no capital.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return "degenerate input: " + e.Reason
}

// InfeasibleError reports an optimization objective that could not be
// solved (empty feasible region or no convergence).
type InfeasibleError struct {
	Objective string
	Reason    string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("optimization %s infeasible: %s", e.Objective, e.Reason)
}

// ErrorStatus maps analysis errors to an HTTP status. Data and input
// problems are the caller's to fix (422); anything else is a server
// fault (500).
func ErrorStatus(err error) int {
	var insufficient *InsufficientDataError
	var missing *MissingFieldError
	var degenerate *DegenerateInputError
	var infeasible *InfeasibleError

	switch {
	case errors.As(err, &insufficient),
		errors.As(err, &missing),
		errors.As(err, &degenerate),
		errors.As(err, &infeasible):
		return 422
	default:
		return 500
	}
}
