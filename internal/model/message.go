package model

const (
	ContentTypePlain = "text/plain"
	ContentTypeHTML  = "text/html"
)

// Message kinds label mail metrics.
const (
	KindOwnerNotification = "owner_notification"
	KindConfirmation      = "confirmation"
)

// OutboundMessage is a single email handed to the mail dispatcher. Build it
// with NewPlainMessage or NewHTMLMessage and treat it as a value.
type OutboundMessage struct {
	From        string `validate:"required,email"`
	To          string `validate:"required,email"`
	Subject     string `validate:"required"`
	Body        string `validate:"required"`
	ContentType string `validate:"oneof=text/plain text/html"`
	ReplyTo     string `validate:"omitempty,email"`
	// Kind is metadata only and never reaches the wire.
	Kind string
}

func NewPlainMessage(from, to, subject, body string) OutboundMessage {
	return OutboundMessage{From: from, To: to, Subject: subject, Body: body, ContentType: ContentTypePlain}
}

func NewHTMLMessage(from, to, subject, body string) OutboundMessage {
	return OutboundMessage{From: from, To: to, Subject: subject, Body: body, ContentType: ContentTypeHTML}
}

// WithReplyTo returns a copy of m with the Reply-To header set.
func (m OutboundMessage) WithReplyTo(addr string) OutboundMessage {
	m.ReplyTo = addr
	return m
}

func (m OutboundMessage) WithKind(kind string) OutboundMessage {
	m.Kind = kind
	return m
}
