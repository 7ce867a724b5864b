package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/bgvotp/internal/otp/usecase"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/messaging"
	"github.com/shandysiswandi/bgvotp/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishOTPVerified(ctx context.Context, msg usecase.OTPVerifiedEvent) error {
	ctx, span := m.ins.Tracer("otp.outbound.mq").Start(ctx, "PublishOTPVerified")
	defer span.End()

	body, err := json.Marshal(event.OTPVerifiedMessage{
		TokenID:    msg.TokenID,
		UserID:     msg.UserID,
		Phone:      msg.Phone,
		Purpose:    msg.Purpose.String(),
		Email:      msg.Email,
		VerifiedAt: msg.VerifiedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.OTPVerifiedDestination, messaging.OutgoingMessage{
		Key:     []byte(msg.Phone),
		Body:    body,
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
