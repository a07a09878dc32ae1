package matching

import "fmt"

// FailureReason says why an oracle decision could not be used.
type FailureReason string

const (
	ReasonTimeout     FailureReason = "timeout"
	ReasonTransport   FailureReason = "transport"
	ReasonMalformed   FailureReason = "malformed"
	ReasonUnknownID   FailureReason = "unknown_id"
	ReasonUnavailable FailureReason = "unavailable"
)

// Decision is the outcome of one oracle call: either a selected provider id
// or a failure reason. The zero value is a failure.
type Decision struct {
	providerID int
	selected   bool
	reason     FailureReason
	err        error
}

func Selected(providerID int) Decision {
	return Decision{providerID: providerID, selected: true}
}

func Failed(reason FailureReason, err error) Decision {
	return Decision{reason: reason, err: err}
}

func (d Decision) ProviderID() (int, bool) {
	return d.providerID, d.selected
}

func (d Decision) Reason() FailureReason {
	if d.selected {
		return ""
	}
	if d.reason == "" {
		return ReasonUnavailable
	}
	return d.reason
}

func (d Decision) Err() error {
	return d.err
}

func (d Decision) String() string {
	if d.selected {
		return fmt.Sprintf("selected(%d)", d.providerID)
	}
	return fmt.Sprintf("failed(%s)", d.Reason())
}
