package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/museum-members/member-registry-api/internal/domain"
	"github.com/museum-members/member-registry-api/internal/domain/ranking"
	idempotencyport "github.com/museum-members/member-registry-api/internal/ports/out/idempotency"
	memberrepoport "github.com/museum-members/member-registry-api/internal/ports/out/memberrepo"
)

type CleanupFunc = func()

type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:     idempotencyport.Key("k-" + uuid.NewString()),
		Subject: domain.SubjectID("staff-1"),
		Route:   "POST /members",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		BodyHash:    "hash-abc",
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"member":{}}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if _, stored, err := store.PutIfAbsent(ctx, fp, rec); err != nil || !stored {
		t.Fatalf("PutIfAbsent: stored=%v err=%v", stored, err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if got.BodyHash != "hash-abc" || got.ContentType != "application/json" || got.StatusCode != 201 || string(got.Body) != `{"member":{}}` {
		t.Fatalf("unexpected record: %+v", got)
	}

	// First writer wins.
	rec2 := rec
	rec2.BodyHash = "hash-def"
	existing, stored, err := store.PutIfAbsent(ctx, fp, rec2)
	if err != nil {
		t.Fatalf("PutIfAbsent second: %v", err)
	}
	if stored || existing.BodyHash != "hash-abc" {
		t.Fatalf("expected first record to win, got stored=%v existing=%+v", stored, existing)
	}
}

func RunMemberRepo(t *testing.T, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	seed := func(name, email string, phone *string, deleted bool) domain.MemberID {
		t.Helper()
		id := domain.MemberID(uuid.NewString())
		if err := repo.Create(ctx, domain.Member{
			ID:        id,
			Name:      name,
			Email:     email,
			Phone:     phone,
			IsDeleted: deleted,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		return id
	}

	phone := "030 5550 1234"
	exactID := seed("Anna Schmidt", "anna.schmidt@example.com", &phone, false)
	fuzzyID := seed("Anna Schmid", "a.s@example.org", nil, false)
	seed("Bernd Mueller", "bernd@example.net", nil, false)
	deletedID := seed("Anna Schmidt", "old.anna@example.com", nil, true)

	got, err := repo.GetByID(ctx, exactID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Anna Schmidt" || got.Phone == nil || *got.Phone != phone || got.IsDeleted {
		t.Fatalf("unexpected member: %#v", got)
	}
	if _, err := repo.GetByID(ctx, domain.MemberID(uuid.NewString())); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing: err=%v, want ErrNotFound", err)
	}

	// Duplicate ID.
	if err := repo.Create(ctx, domain.Member{ID: exactID, Name: "X", Email: "x@example.com", CreatedAt: now, UpdatedAt: now}); !errors.Is(err, memberrepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate id: err=%v, want ErrAlreadyExists", err)
	}
	// Active email uniqueness (case-insensitive).
	if err := repo.Create(ctx, domain.Member{ID: domain.MemberID(uuid.NewString()), Name: "Y", Email: "ANNA.SCHMIDT@example.com", CreatedAt: now, UpdatedAt: now}); !errors.Is(err, memberrepoport.ErrEmailInUse) {
		t.Fatalf("duplicate email: err=%v, want ErrEmailInUse", err)
	}
	if m, err := repo.FindActiveByEmail(ctx, "Anna.Schmidt@Example.com"); err != nil || m.ID != exactID {
		t.Fatalf("FindActiveByEmail: m=%#v err=%v", m, err)
	}

	// Deterministic list ordering by name (case-insensitive), filtered by status.
	active, err := repo.List(ctx, domain.ActiveStatusActive)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 3 || active[0].Name != "Anna Schmid" || active[2].Name != "Bernd Mueller" {
		t.Fatalf("unexpected ordering: %#v", active)
	}
	deleted, err := repo.List(ctx, domain.ActiveStatusDeleted)
	if err != nil {
		t.Fatalf("List deleted: %v", err)
	}
	if len(deleted) != 1 || deleted[0].ID != deletedID {
		t.Fatalf("unexpected deleted list: %#v", deleted)
	}

	// Ranked search: exact first, fuzzy second, unrelated excluded, deleted filtered.
	q := "Anna Schmidt"
	page, err := repo.SearchRanked(ctx, ranking.Query{Text: &q, Status: domain.ActiveStatusActive, PageNumber: 0, PageSize: 10})
	if err != nil {
		t.Fatalf("SearchRanked: %v", err)
	}
	if len(page.Content) != 2 || page.TotalElements != 2 || page.TotalPages != 1 {
		t.Fatalf("unexpected page: %#v", page)
	}
	if page.Content[0].Member.ID != exactID || page.Content[0].Tier != ranking.ExactMatch {
		t.Fatalf("first result: %#v", page.Content[0])
	}
	if page.Content[1].Member.ID != fuzzyID || page.Content[1].Tier != ranking.FuzzyMatch {
		t.Fatalf("second result: %#v", page.Content[1])
	}

	// status=all brings the deleted twin back; higher-or-equal tier ordering still holds.
	page, err = repo.SearchRanked(ctx, ranking.Query{Text: &q, Status: domain.ActiveStatusAll, PageNumber: 0, PageSize: 2})
	if err != nil {
		t.Fatalf("SearchRanked all: %v", err)
	}
	if page.TotalElements != 3 || page.TotalPages != 2 || len(page.Content) != 2 {
		t.Fatalf("unexpected all page: %#v", page)
	}
	for _, r := range page.Content {
		if r.Tier != ranking.ExactMatch {
			t.Fatalf("expected both exact matches on page 0, got %#v", r)
		}
	}

	// Beyond the last page: empty content, unchanged totals.
	page, err = repo.SearchRanked(ctx, ranking.Query{Text: &q, Status: domain.ActiveStatusAll, PageNumber: 5, PageSize: 2})
	if err != nil {
		t.Fatalf("SearchRanked beyond: %v", err)
	}
	if len(page.Content) != 0 || page.TotalElements != 3 || page.TotalPages != 2 {
		t.Fatalf("unexpected beyond page: %#v", page)
	}

	// Phone prefix.
	pq := "030 5550"
	page, err = repo.SearchRanked(ctx, ranking.Query{Text: &pq, Status: domain.ActiveStatusActive, PageSize: 10})
	if err != nil {
		t.Fatalf("SearchRanked phone: %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].Member.ID != exactID || page.Content[0].Tier != ranking.PrefixMatch {
		t.Fatalf("unexpected phone page: %#v", page)
	}

	// Empty query matches nothing.
	empty := ""
	page, err = repo.SearchRanked(ctx, ranking.Query{Text: &empty, Status: domain.ActiveStatusAll, PageSize: 10})
	if err != nil {
		t.Fatalf("SearchRanked empty: %v", err)
	}
	if page.TotalElements != 0 || len(page.Content) != 0 {
		t.Fatalf("unexpected empty-query page: %#v", page)
	}

	// Invalid queries are rejected.
	if _, err := repo.SearchRanked(ctx, ranking.Query{Text: &q, Status: domain.ActiveStatusActive, PageSize: 0}); !errors.Is(err, ranking.ErrInvalidArgument) {
		t.Fatalf("SearchRanked pageSize=0: err=%v, want ErrInvalidArgument", err)
	}

	// Soft delete through Update removes the member from active search.
	got.IsDeleted = true
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	page, err = repo.SearchRanked(ctx, ranking.Query{Text: &q, Status: domain.ActiveStatusActive, PageSize: 10})
	if err != nil {
		t.Fatalf("SearchRanked after delete: %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].Member.ID != fuzzyID {
		t.Fatalf("unexpected page after delete: %#v", page)
	}
	if err := repo.Update(ctx, domain.Member{ID: domain.MemberID(uuid.NewString()), Name: "Ghost", Email: "ghost@example.com", UpdatedAt: now}); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("Update missing: err=%v, want ErrNotFound", err)
	}

	// The fuzzy threshold is strict: 3 shared of 10 trigrams (exactly 0.3) is no match, 3 of 9 is.
	seed("abcdefg", "q1@example.net", nil, false)
	aboveID := seed("abcdef", "q2@example.net", nil, false)
	bq := "abce"
	page, err = repo.SearchRanked(ctx, ranking.Query{Text: &bq, Status: domain.ActiveStatusAll, PageSize: 10})
	if err != nil {
		t.Fatalf("SearchRanked threshold: %v", err)
	}
	if page.TotalElements != 1 || len(page.Content) != 1 || page.Content[0].Member.ID != aboveID || page.Content[0].Tier != ranking.FuzzyMatch {
		t.Fatalf("unexpected threshold page: %#v", page)
	}
}
