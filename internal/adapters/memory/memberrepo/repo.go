package memberrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/museum-members/member-registry-api/internal/domain"
	"github.com/museum-members/member-registry-api/internal/domain/ranking"
	"github.com/museum-members/member-registry-api/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID map[domain.MemberID]domain.Member
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.MemberID]domain.Member),
	}
}

func (r *Repo) Create(ctx context.Context, m domain.Member) error {
	_ = ctx
	if m.ID == "" {
		return memberrepo.ErrAlreadyExists // treat empty ID as invalid; the app layer always assigns one
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; ok {
		return memberrepo.ErrAlreadyExists
	}
	if !m.IsDeleted && r.activeEmailTakenLocked(m.Email, m.ID) {
		return memberrepo.ErrEmailInUse
	}

	r.byID[m.ID] = m.Clone()
	return nil
}

func (r *Repo) Update(ctx context.Context, m domain.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[m.ID]
	if !ok {
		return memberrepo.ErrNotFound
	}
	if !m.IsDeleted && r.activeEmailTakenLocked(m.Email, m.ID) {
		return memberrepo.ErrEmailInUse
	}
	// CreatedAt is immutable.
	m.CreatedAt = existing.CreatedAt

	r.byID[m.ID] = m.Clone()
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	return m.Clone(), nil
}

func (r *Repo) FindActiveByEmail(ctx context.Context, email string) (domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.byID {
		if !m.IsDeleted && strings.EqualFold(m.Email, email) {
			return m.Clone(), nil
		}
	}
	return domain.Member{}, memberrepo.ErrNotFound
}

func (r *Repo) List(ctx context.Context, status domain.ActiveStatus) ([]domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Member, 0, len(r.byID))
	for _, m := range r.byID {
		if !status.Includes(m.IsDeleted) {
			continue
		}
		out = append(out, m.Clone())
	}
	sortMembersByName(out)
	return out, nil
}

// SearchRanked ranks a snapshot of the stored members in-process.
func (r *Repo) SearchRanked(ctx context.Context, q ranking.Query) (ranking.Page, error) {
	if err := ctx.Err(); err != nil {
		return ranking.Page{}, err
	}

	r.mu.RLock()
	snapshot := make([]domain.Member, 0, len(r.byID))
	for _, m := range r.byID {
		snapshot = append(snapshot, m)
	}
	r.mu.RUnlock()

	// ranking.Search clones every result, so the snapshot can share phone pointers with the map.
	return ranking.Search(q, snapshot)
}

func (r *Repo) activeEmailTakenLocked(email string, self domain.MemberID) bool {
	for id, m := range r.byID {
		if id == self || m.IsDeleted {
			continue
		}
		if strings.EqualFold(m.Email, email) {
			return true
		}
	}
	return false
}

func sortMembersByName(ms []domain.Member) {
	sort.Slice(ms, func(i, j int) bool {
		di := strings.ToLower(ms[i].Name)
		dj := strings.ToLower(ms[j].Name)
		if di == dj {
			return string(ms[i].ID) < string(ms[j].ID)
		}
		return di < dj
	})
}
