// Package email delivers signup confirmations through an external provider.
package email

import (
	"context"
	"time"
)

// Message is a single outbound email.
type Message struct {
	To      string
	From    string // falls back to the sender's default when empty
	Subject string
	HTML    string
	ReplyTo string
}

// Receipt is the provider's acknowledgement of a Message.
type Receipt struct {
	MessageID string
	SentAt    time.Time
}

// Sender sends email via an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}
