package visit

import (
	"fmt"
	"strings"
)

// botSignatures are matched case-insensitively anywhere in the user agent.
var botSignatures = []string{"bot", "crawl", "spider", "slurp", "ia_archiver"}

// IsBot reports whether userAgent looks like a crawler.
func IsBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, sig := range botSignatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}

// Policy decides whose bot flag wins.
type Policy string

const (
	// PolicyTrust keeps the caller's flag when one was sent and derives it
	// from the user agent otherwise.
	PolicyTrust Policy = "trust"
	// PolicyDerive always uses the user-agent rule; the caller's flag is
	// kept only for comparison.
	PolicyDerive Policy = "derive"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyTrust, PolicyDerive:
		return p, nil
	case "":
		return PolicyTrust, nil
	default:
		return "", fmt.Errorf("unknown bot policy %q", s)
	}
}

// resolve returns the effective flag and whether the caller disagreed with the rule.
func (p Policy) resolve(userAgent string, clientIsBot *bool) (isBot, mismatch bool) {
	derived := IsBot(userAgent)
	if clientIsBot == nil {
		return derived, false
	}
	mismatch = *clientIsBot != derived
	if p == PolicyTrust {
		return *clientIsBot, mismatch
	}
	return derived, mismatch
}
