package logger

import (
	"context"

	"github.com/google/uuid"
)

// WithCycleIDContext adds a refresh cycle ID to the context, generating a
// fresh UUID when none is provided.
func WithCycleIDContext(ctx context.Context, cycleID string) context.Context {
	if cycleID == "" {
		cycleID = uuid.New().String()
	}
	return context.WithValue(ctx, CycleIDKey, cycleID)
}

// GetCycleID extracts the cycle ID from the context, or returns an empty
// string when absent.
func GetCycleID(ctx context.Context) string {
	if cycleID, ok := ctx.Value(CycleIDKey).(string); ok {
		return cycleID
	}
	return ""
}

// NewCycleID generates a new refresh cycle ID.
func NewCycleID() string {
	return uuid.New().String()
}
