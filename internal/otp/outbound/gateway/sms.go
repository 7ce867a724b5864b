package gateway

import (
	"context"

	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/sms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type SMS struct {
	client sms.SMS
	ins    instrument.Instrumentation
}

func New(client sms.SMS, ins instrument.Instrumentation) *SMS {
	return &SMS{client: client, ins: ins}
}

func (g *SMS) SendSMS(ctx context.Context, phone, body string) error {
	ctx, span := g.ins.Tracer("otp.outbound.gateway").Start(ctx, "SendSMS",
		trace.WithAttributes(attribute.Int("sms.body_length", len(body))),
	)
	defer span.End()

	if err := g.client.Send(ctx, sms.Message{To: phone, Body: body}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
