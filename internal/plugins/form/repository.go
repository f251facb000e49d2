package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
)

// sessionKeyPrefix is the Redis key prefix for form sessions.
const sessionKeyPrefix = "form:session:"

// SessionRepository defines the storage contract for form sessions.
type SessionRepository interface {
	Find(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// sessionRepository stores sessions as JSON values in Redis. Every Save
// refreshes the TTL, so an active visitor never loses their form.
type sessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionRepository creates a Redis-backed form session repository.
func NewSessionRepository(rdb *redis.Client, ttl time.Duration) SessionRepository {
	return &sessionRepository{rdb: rdb, ttl: ttl}
}

// Find loads a session. A missing or expired session is a 404 AppError.
func (r *sessionRepository) Find(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.NewNotFound("form session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("reading form session from Redis: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling form session: %w", err)
	}
	return &s, nil
}

// Save writes the whole session and resets its TTL.
func (r *sessionRepository) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling form session: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKeyPrefix+s.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("storing form session in Redis: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting form session from Redis: %w", err)
	}
	return nil
}
