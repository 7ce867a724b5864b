package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

var (
	ErrSMTPHostPortRequired = errors.New("mail: smtp host and port are required")
	ErrNoRecipients         = errors.New("mail: no recipients")
	ErrNoSender             = errors.New("mail: no sender")
	ErrNoBody               = errors.New("mail: empty body")
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is used when Message.From is empty.
	From string
}

type SMTP struct {
	addr string
	auth smtp.Auth
	from string
	now  func() time.Time
}

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	s := &SMTP{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from: cfg.From,
		now:  time.Now,
	}
	if cfg.Username != "" && cfg.Password != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return s, nil
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.from
	}

	from, to, raw, err := compose(msg, s.now())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return smtp.SendMail(s.addr, s.auth, from, to, raw)
}

func (s *SMTP) Close() error { return nil }

// compose validates msg and renders it as an RFC 5322 message. It returns
// the envelope sender and recipients alongside the raw bytes.
func compose(msg Message, now time.Time) (string, []string, []byte, error) {
	if msg.From == "" {
		return "", nil, nil, ErrNoSender
	}
	if len(msg.To) == 0 {
		return "", nil, nil, ErrNoRecipients
	}
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return "", nil, nil, ErrNoBody
	}

	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return "", nil, nil, fmt.Errorf("mail: sender: %w", err)
	}
	to := make([]string, 0, len(msg.To))
	shown := make([]string, 0, len(msg.To))
	for _, raw := range msg.To {
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return "", nil, nil, fmt.Errorf("mail: recipient %q: %w", raw, err)
		}
		to = append(to, addr.Address)
		shown = append(shown, addr.String())
	}

	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from.String())
	header("To", strings.Join(shown, ", "))
	if msg.ReplyTo != "" {
		header("Reply-To", msg.ReplyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		mw := multipart.NewWriter(&buf)
		header("Content-Type", mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": mw.Boundary()}))
		buf.WriteString("\r\n")
		for _, part := range []struct{ ctype, body string }{
			{"text/plain; charset=UTF-8", msg.TextBody},
			{"text/html; charset=UTF-8", msg.HTMLBody},
		} {
			w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
			if err != nil {
				return "", nil, nil, err
			}
			if _, err := w.Write([]byte(part.body)); err != nil {
				return "", nil, nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return "", nil, nil, err
		}
	case msg.HTMLBody != "":
		header("Content-Type", "text/html; charset=UTF-8")
		buf.WriteString("\r\n" + msg.HTMLBody)
	default:
		header("Content-Type", "text/plain; charset=UTF-8")
		buf.WriteString("\r\n" + msg.TextBody)
	}

	return from.Address, to, buf.Bytes(), nil
}
