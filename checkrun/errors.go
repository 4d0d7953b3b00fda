package checkrun

import "fmt"

/* Resolution failure reasons
 * The reason drives the published summary and separates "upstream is
 * degraded" (circuit open), "artifact never appeared" (timeout), and
 * "upstream rejected us" (permanent) in logs and check-run output.
 */

type ResolutionReason string

const (
	ReasonTimeout     ResolutionReason = "timeout"      // retry budget exhausted before a parseable artifact appeared
	ReasonCircuitOpen ResolutionReason = "circuit_open" // breaker failed the call fast
	ReasonPermanent   ResolutionReason = "permanent"    // non-retryable upstream error
)

// ResolutionError is the terminal failure of an artifact resolution.
type ResolutionError struct {
	Reason   ResolutionReason
	Attempts int // resolution rounds consumed before giving up
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("artifact resolution failed (%s)", e.Reason)
	}
	return fmt.Sprintf("artifact resolution failed (%s): %v", e.Reason, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
