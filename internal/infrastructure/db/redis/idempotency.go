package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/issuedesk/tracker/internal/core/ports"
)

// DefaultIdempotencyTTL bounds how long a create can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore maps Idempotency-Key headers to created ticket ids.
// Key format: idem:ticket:<account_id>:<key>
type IdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Lookup reports the ticket id stored for key, if any.
func (s *IdempotencyStore) Lookup(ctx context.Context, accountID, key string) (int64, bool, error) {
	val, err := s.client.Get(ctx, s.key(accountID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: corrupt value %q", val)
	}
	return id, true, nil
}

// Remember stores ticketID under key unless the key is already taken.
func (s *IdempotencyStore) Remember(ctx context.Context, accountID, key string, ticketID int64) error {
	if err := s.client.SetNX(ctx, s.key(accountID, key), ticketID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(accountID, key string) string {
	return fmt.Sprintf("idem:ticket:%s:%s", accountID, key)
}
