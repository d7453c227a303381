package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("sync_operations")

// BoltStore keeps claims in an embedded bbolt file for single-node deployments.
// Expired records are ignored on read and overwritten by the next claim.
type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

func OpenBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bolt bucket")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BoltStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *BoltStore) Claim(_ context.Context, userID, opID string) (*Record, bool, error) {
	key := []byte(Key(userID, opID))
	var (
		prior   *Record
		claimed bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		now := s.now()
		if raw := b.Get(key); raw != nil {
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return errors.Wrap(err, "decode operation claim")
			}
			if now.Before(rec.ExpiresAt) {
				prior = &rec
				return nil
			}
		}
		val, err := json.Marshal(pending(now, s.ttl))
		if err != nil {
			return err
		}
		claimed = true
		return b.Put(key, val)
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "claim operation")
	}
	return prior, claimed, nil
}

func (s *BoltStore) Complete(_ context.Context, userID, opID string, rec Record) error {
	now := s.now()
	rec.State = StateDone
	rec.UpdatedAt = now
	rec.ExpiresAt = now.Add(s.ttl)
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(Key(userID, opID)), val)
	})
}

func (s *BoltStore) Release(_ context.Context, userID, opID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(Key(userID, opID)))
	})
}

// Purge deletes expired records and reports how many were removed.
func (s *BoltStore) Purge() (int, error) {
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		now := s.now()
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil || !now.Before(rec.ExpiresAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
