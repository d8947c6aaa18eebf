package model

import "time"

// VisitEvent is one page load as reported by the site.
type VisitEvent struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	UserAgent string    `json:"user_agent"`
	IsBot     bool      `json:"is_bot"`
	Timestamp time.Time `json:"timestamp"`

	// ClientIsBot is the flag the caller sent, nil when it sent none.
	ClientIsBot *bool  `json:"client_is_bot,omitempty"`
	BotPolicy   string `json:"bot_policy"`
	RemoteAddr  string `json:"remote_addr,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
}

// Class is the traffic class label used in logs and metrics.
func (v VisitEvent) Class() string {
	if v.IsBot {
		return "bot"
	}
	return "human"
}
