package model

// ContactSubmission is one contact-form post. It lives for a single request
// and is never stored.
type ContactSubmission struct {
	From    string `json:"from"`
	Name    string `json:"name,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
