package reporting

import "context"

// Attachment is an optional binary part of an outgoing report, typically a
// rendered dashboard image uploaded by the frontend.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing report email.
type Message struct {
	To         string
	Subject    string
	HTML       string
	Attachment *Attachment
}

// Sender delivers a rendered report. Implementations cover the Infobip email
// API and plain SMTP.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
