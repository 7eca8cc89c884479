package core

import "errors"

// OverrunError reports that a gate period had already elapsed when the gate
// was reached. All values are microseconds regardless of the Gate* variant.
type OverrunError struct {
	Period  uint64 // requested period
	Elapsed uint64 // time since the previous anchor when the overrun was seen
}

// Excess is how far past the period the cycle ran
func (e *OverrunError) Excess() uint64 {
	return e.Elapsed - e.Period
}

func (e *OverrunError) Error() string {
	return "gate overrun: " + utoa64(e.Excess()) + "us over " + utoa64(e.Period) + "us period"
}

// AsOverrun unwraps err into an *OverrunError if it is one
func AsOverrun(err error) (*OverrunError, bool) {
	var oe *OverrunError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
