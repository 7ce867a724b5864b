package usecase

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/pkg/mail"
)

const phoneVerifiedSubject = "Your phone number is verified"

var phoneVerifiedTemplate = template.Must(template.New("phone_verified").Option("missingkey=zero").Parse(`<!doctype html>
<html>
<body style="font-family:Arial,sans-serif;color:#1f2933">
<p>Hi {{if .full_name}}{{.full_name}}{{else}}there{{end}},</p>
<p>The phone number ending in <strong>{{.phone_tail}}</strong> was verified on {{.verified_at}}.</p>
{{if .portal_url}}<p>You can finish setting up your account at <a href="{{.portal_url}}">{{.portal_url}}</a>.</p>{{end}}
<p>If this was not you, contact {{.support_email}} right away.</p>
<p style="font-size:12px;color:#7b8794">&copy; {{.year}} {{.company_name}}</p>
</body>
</html>`))

type phoneVerifiedEmail struct {
	AccountID  int64
	To         string
	FullName   string
	Phone      string
	VerifiedAt time.Time
}

// sendPhoneVerifiedEmail is best effort. The verification is already stored.
func (s *Usecase) sendPhoneVerifiedEmail(ctx context.Context, in phoneVerifiedEmail) {
	data := map[string]any{
		"full_name":     in.FullName,
		"phone_tail":    phoneTail(in.Phone),
		"verified_at":   in.VerifiedAt.UTC().Format("02 Jan 2006 15:04 MST"),
		"portal_url":    s.cfg.GetString("modules.account.portal_url"),
		"support_email": s.cfg.GetString("modules.account.support_email"),
		"company_name":  s.cfg.GetString("modules.account.company_name"),
		"year":          s.clock.Now().Format("2006"),
	}

	var body bytes.Buffer
	if err := phoneVerifiedTemplate.Execute(&body, data); err != nil {
		slog.ErrorContext(ctx, "failed to render phone verified email", "account_id", in.AccountID, "error", err)
		return
	}

	if err := s.repoMail.Send(ctx, mail.Message{
		To:       []string{in.To},
		Subject:  phoneVerifiedSubject,
		HTMLBody: body.String(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to send phone verified email", "account_id", in.AccountID, "error", err)
	}
}

func phoneTail(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
