package instrument

import "context"

type correlationKey struct{}

const invalidCorrelationID = "[invalid_chain_id]"

// SetCorrelationID stores the request or message correlation id in ctx.
func SetCorrelationID(ctx context.Context, cID string) context.Context {
	return context.WithValue(ctx, correlationKey{}, cID)
}

// GetCorrelationID returns the correlation id stored in ctx.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return invalidCorrelationID
	}

	cID, ok := ctx.Value(correlationKey{}).(string)
	if !ok || cID == "" {
		return invalidCorrelationID
	}

	return cID
}
