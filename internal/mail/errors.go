package mail

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
)

// ClassifyError maps a transport error to a failure reason.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonNetworkTimeout
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return classifyReplyCode(protoErr.Code, protoErr.Msg)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ReasonNetworkTimeout
		}
		return ReasonNetworkError
	}

	// gomail flattens some errors into strings.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "535"), strings.Contains(msg, "username and password not accepted"):
		return ReasonAuthFailed
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return ReasonRateLimited
	case strings.Contains(msg, "timeout"):
		return ReasonNetworkTimeout
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return ReasonNetworkError
	}

	return ReasonUnknown
}

func classifyReplyCode(code int, msg string) string {
	switch code {
	case 530, 534, 535:
		return ReasonAuthFailed
	case 421, 450, 451, 452:
		return ReasonRateLimited
	case 454:
		// 4.7.0 temporary auth or TLS failure; retrying later can succeed
		return ReasonTemporary
	}
	if strings.Contains(msg, "5.4.5") || strings.Contains(strings.ToLower(msg), "quota") {
		return ReasonRateLimited
	}
	switch {
	case code >= 500:
		return ReasonRejected
	case code >= 400:
		return ReasonTemporary
	}
	return ReasonUnknown
}

// countsAgainstProvider reports whether a failure says something about the
// provider's health, as opposed to the message or the caller.
func countsAgainstProvider(err error) bool {
	switch ReasonOf(err) {
	case ReasonInvalidMessage, ReasonRejected, ReasonCanceled, ReasonCircuitOpen:
		return false
	}
	return true
}
