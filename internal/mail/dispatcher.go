// Package mail sends single outbound messages through a transactional mail
// provider. Every Send is at most one delivery attempt; callers own retries.
package mail

import (
	"context"
	"errors"
	"fmt"

	"portfolio-notify/internal/model"
)

// Dispatcher transmits one message.
type Dispatcher interface {
	Send(ctx context.Context, msg model.OutboundMessage) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, msg model.OutboundMessage) error

func (f DispatcherFunc) Send(ctx context.Context, msg model.OutboundMessage) error {
	return f(ctx, msg)
}

// Failure reasons attached to DispatchError.
const (
	ReasonInvalidMessage = "invalid_message"
	ReasonAuthFailed     = "auth_failed"
	ReasonRateLimited    = "rate_limited"
	ReasonTemporary      = "temporary"
	ReasonRejected       = "rejected"
	ReasonNetworkTimeout = "network_timeout"
	ReasonNetworkError   = "network_error"
	ReasonCanceled       = "canceled"
	ReasonCircuitOpen    = "circuit_open"
	ReasonUnknown        = "unknown"
)

// DispatchError is the failure(reason) result of a Send. Err is the
// provider's own error.
type DispatchError struct {
	Reason string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("mail dispatch failed (%s): %v", e.Reason, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Detail is the provider message, suitable for returning to the caller.
func (e *DispatchError) Detail() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Err.Error()
}

// ReasonOf returns the classified reason of err, or ReasonUnknown when err
// did not come from a dispatcher.
func ReasonOf(err error) string {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ReasonUnknown
}

// DetailOf returns the provider detail of err.
func DetailOf(err error) string {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Detail()
	}
	return err.Error()
}
