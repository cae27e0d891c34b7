package transition

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard is a fast-path filter for replayed webhook deliveries.
// It is an optimization in front of the store-level idempotency, not a
// substitute for it: a guard failure or false "not seen" answer is always
// safe because the store deduplicates on the checkout session ID anyway.
//
// Event IDs are marked only after processing succeeds. A delivery that dies
// on a transient store error leaves no mark, so the provider's redelivery of
// the same event is processed instead of dropped.
type ReplayGuard interface {
	// Seen reports whether this event ID completed processing within the
	// guard's retention window.
	Seen(ctx context.Context, eventID string) (bool, error)

	// MarkSeen records the event ID after processing succeeded.
	MarkSeen(ctx context.Context, eventID string) error
}

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReplayGuard creates a ReplayGuard backed by redis.
// Entries expire after ttl; providers stop redelivering long before any
// sane retention window ends.
func NewRedisReplayGuard(client *redis.Client, ttl time.Duration) ReplayGuard {
	if client == nil {
		panic("transition: redis client is required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &redisGuard{client: client, ttl: ttl}
}

func (g *redisGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := g.client.Exists(ctx, guardKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *redisGuard) MarkSeen(ctx context.Context, eventID string) error {
	return g.client.Set(ctx, guardKey(eventID), 1, g.ttl).Err()
}

func guardKey(eventID string) string {
	return "packwise:webhook:" + eventID
}
