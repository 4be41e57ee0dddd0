package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/museum-members/member-registry-api/internal/domain"
	"github.com/museum-members/member-registry-api/internal/ports/out/idempotency"
)

func TestStore_PutIfAbsentThenGet(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:     "k1",
		Subject: domain.SubjectID("staff-1"),
		Route:   "POST /members",
	}
	rec := idempotency.Record{
		BodyHash:    "abc123",
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"ok":true}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if _, stored, err := s.PutIfAbsent(context.Background(), fp, rec); err != nil || !stored {
		t.Fatalf("PutIfAbsent() stored=%v err=%v, want stored", stored, err)
	}

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if got.StatusCode != rec.StatusCode || got.BodyHash != rec.BodyHash || string(got.Body) != string(rec.Body) {
		t.Fatalf("Get()=%+v, want %+v", got, rec)
	}

	// Mutating the returned body must not affect the stored record.
	got.Body[0] = 'X'
	again, _, _ := s.Get(context.Background(), fp)
	if string(again.Body) != `{"ok":true}` {
		t.Fatalf("stored body mutated: %q", again.Body)
	}
}

func TestStore_FingerprintIsolation(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp1 := idempotency.Fingerprint{Key: "k1", Subject: "staff-1", Route: "POST /members"}
	fp2 := idempotency.Fingerprint{Key: "k1", Subject: "staff-2", Route: "POST /members"}

	_, _, _ = s.PutIfAbsent(context.Background(), fp1, idempotency.Record{BodyHash: "h1", StatusCode: 201})
	if _, ok, _ := s.Get(context.Background(), fp2); ok {
		t.Fatalf("expected subject-scoped key not to leak across subjects")
	}
}
