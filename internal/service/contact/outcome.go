package contact

import "errors"

var (
	ErrMissingFields = errors.New("missing fields")
	ErrInvalidEmail  = errors.New("invalid email")
)

// State is the terminal state of one intake saga.
type State string

const (
	// StateRejected: validation failed, nothing was sent.
	StateRejected State = "rejected"
	// StateNotifyFailed: the owner notification failed, confirmation not attempted.
	StateNotifyFailed State = "notify_failed"
	// StateConfirmFailed: the owner was notified but the confirmation failed.
	// The first mail cannot be recalled.
	StateConfirmFailed State = "confirm_failed"
	StateSucceeded     State = "succeeded"
)

// Outcome reports how far the saga got.
type Outcome struct {
	State            State
	OwnerNotified    bool
	ConfirmationSent bool
	// ConfirmationSkipped is set when confirmations are disabled.
	ConfirmationSkipped bool
	Err                 error
}

func (o Outcome) OK() bool { return o.State == StateSucceeded }

// Partial reports the partial-success hazard: one side effect happened, the
// overall result is still a failure.
func (o Outcome) Partial() bool { return o.State == StateConfirmFailed }
