package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"auth", &textproto.Error{Code: 535, Msg: "auth failed"}, ReasonAuthFailed},
		{"rate limited", &textproto.Error{Code: 421, Msg: "try again later"}, ReasonRateLimited},
		{"quota", &textproto.Error{Code: 550, Msg: "5.4.5 Daily user sending quota exceeded"}, ReasonRateLimited},
		{"rejected", &textproto.Error{Code: 550, Msg: "mailbox unavailable"}, ReasonRejected},
		{"temporary", &textproto.Error{Code: 471, Msg: "local error"}, ReasonTemporary},
		{"temporary auth failure", &textproto.Error{Code: 454, Msg: "4.7.0 Temporary authentication failure"}, ReasonTemporary},
		{"timeout", timeoutErr{}, ReasonNetworkTimeout},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ReasonNetworkError},
		{"canceled", fmt.Errorf("send: %w", context.Canceled), ReasonCanceled},
		{"deadline", context.DeadlineExceeded, ReasonNetworkTimeout},
		{"flattened auth", errors.New("gomail: could not send email 1: 535 5.7.8 bad credentials"), ReasonAuthFailed},
		{"other", errors.New("something odd"), ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}
