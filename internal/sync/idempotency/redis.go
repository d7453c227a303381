package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/pantry-service/pkg/cache"
	"github.com/pkg/errors"
)

// RedisStore shares claims across service instances. Expiry is left to Redis.
type RedisStore struct {
	client *cache.RedisClient
	ttl    time.Duration
}

func NewRedisStore(client *cache.RedisClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Claim(ctx context.Context, userID, opID string) (*Record, bool, error) {
	key := Key(userID, opID)
	val, err := json.Marshal(pending(time.Now().UTC(), s.ttl))
	if err != nil {
		return nil, false, err
	}

	ok, err := s.client.SetNX(ctx, key, val, leaseFor(s.ttl))
	if err != nil {
		return nil, false, errors.Wrap(err, "claim operation")
	}
	if ok {
		return nil, true, nil
	}

	raw, err := s.client.Get(ctx, key)
	if err != nil {
		return nil, false, errors.Wrap(err, "read operation claim")
	}
	if raw == nil {
		// expired or released between SETNX and GET
		return s.Claim(ctx, userID, opID)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, errors.Wrap(err, "decode operation claim")
	}
	return &rec, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, userID, opID string, rec Record) error {
	now := time.Now().UTC()
	rec.State = StateDone
	rec.UpdatedAt = now
	rec.ExpiresAt = now.Add(s.ttl)
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return errors.Wrap(s.client.Set(ctx, Key(userID, opID), val, s.ttl), "complete operation")
}

func (s *RedisStore) Release(ctx context.Context, userID, opID string) error {
	return errors.Wrap(s.client.Del(ctx, Key(userID, opID)), "release operation")
}
