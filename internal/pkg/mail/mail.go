package mail

import (
	"context"
	"io"
)

// Message is one outgoing email. At least one of TextBody and HTMLBody is
// set; with both, the message is sent as multipart/alternative.
type Message struct {
	From     string
	To       []string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
