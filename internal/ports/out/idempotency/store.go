package idempotency

import (
	"context"
	"time"

	"github.com/museum-members/member-registry-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint scopes an idempotency key to the staff subject and the route it was used on.
// Route is HTTP method + path template (e.g. "POST /members").
type Fingerprint struct {
	Key     Key
	Subject domain.SubjectID
	Route   string
}

// Record is the first response produced for a fingerprint.
// BodyHash identifies the request payload so that reuse with a different payload can be rejected.
type Record struct {
	BodyHash    string
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)

	// PutIfAbsent stores rec unless a record already exists for fp.
	// stored is false when another request won the race; existing is then the winner's record.
	PutIfAbsent(ctx context.Context, fp Fingerprint, rec Record) (existing Record, stored bool, err error)
}
