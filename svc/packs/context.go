package packs

import (
	"context"

	"github.com/google/uuid"
)

type userIDCtxKey struct{}

// WithUserID attaches the authenticated user ID to the context.
// The surrounding auth middleware owns verification; this package only
// consumes the result.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

// UserIDFromContext retrieves the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDCtxKey{}).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
