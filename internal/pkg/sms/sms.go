package sms

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNoRecipient is returned when the message has no destination number.
	ErrNoRecipient = errors.New("sms: recipient is required")
	// ErrEmptyBody is returned when the message body is empty.
	ErrEmptyBody = errors.New("sms: body is required")
)

// Message is a single text message.
type Message struct {
	// To is the destination phone number.
	To string
	// Body is the text content.
	Body string
}

// SMS abstracts a text message gateway.
type SMS interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

func (m Message) validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	if m.Body == "" {
		return ErrEmptyBody
	}
	return nil
}
