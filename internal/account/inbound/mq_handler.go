package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/bgvotp/internal/account/usecase"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/messaging"
	"github.com/shandysiswandi/bgvotp/internal/pkg/uid"
	"github.com/shandysiswandi/bgvotp/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := messaging.HeaderValue(msg, keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) OTPVerified(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("account.inbound.mq").Start(ctx, "OTPVerified")
	defer span.End()

	var payload event.OTPVerifiedMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp verified", "msg_id", msg.ID(), "msg_size", len(msg.Body()), "error", err)
		return nil
	}

	// The raw body is never logged. Phone goes out under its own key to be masked.
	logAttrs := []any{"token_id", payload.TokenID, "purpose", payload.Purpose, "phone", payload.Phone}
	slog.InfoContext(ctx, "consume: otp verified", logAttrs...)

	if err := h.uc.ConsumeOTPVerified(ctx, usecase.ConsumeOTPVerifiedInput{
		TokenID:    payload.TokenID,
		UserID:     payload.UserID,
		Phone:      payload.Phone,
		Purpose:    payload.Purpose,
		Email:      payload.Email,
		VerifiedAt: payload.VerifiedAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume otp verified", append(logAttrs, "error", err)...)
		return err
	}

	return nil
}
