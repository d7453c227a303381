// Package idempotency remembers which client operation ids a user has already applied,
// so a batch resubmitted after a lost response is not applied twice.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const DefaultTTL = 24 * time.Hour

// PendingLease bounds how long an unfinished claim blocks retries. A process that
// dies between Claim and Complete or Release frees the id once the lease runs out.
const PendingLease = 5 * time.Minute

type State string

const (
	StatePending State = "pending"
	StateDone    State = "done"
)

// Record is the stored outcome of one client operation.
type Record struct {
	State     State           `json:"state"`
	Type      string          `json:"type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
	ExpiresAt time.Time       `json:"expiresAt,omitempty"`
}

type Store interface {
	// Claim reserves opID for the caller. When the id is already known it returns the
	// existing record and claimed=false; a pending record means another call holds it.
	Claim(ctx context.Context, userID, opID string) (prior *Record, claimed bool, err error)
	// Complete stores the successful outcome of a claimed operation.
	Complete(ctx context.Context, userID, opID string, rec Record) error
	// Release drops a claim so the operation can be retried.
	Release(ctx context.Context, userID, opID string) error
}

// Key is the storage key for one operation of one user.
func Key(userID, opID string) string {
	return fmt.Sprintf("sync:op:%s:%s", userID, opID)
}

// leaseFor is the lifetime of a pending claim; it never outlives the store ttl.
func leaseFor(ttl time.Duration) time.Duration {
	if ttl < PendingLease {
		return ttl
	}
	return PendingLease
}

func pending(now time.Time, ttl time.Duration) Record {
	return Record{State: StatePending, UpdatedAt: now, ExpiresAt: now.Add(leaseFor(ttl))}
}
