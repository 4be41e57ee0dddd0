package memberrepo

import (
	"context"

	"github.com/museum-members/member-registry-api/internal/domain"
	"github.com/museum-members/member-registry-api/internal/domain/ranking"
)

// Repository provides access to persisted members.
//
// Result ordering expectations:
//   - List returns members ordered by Name (case-insensitive) ascending, then ID, to keep behavior deterministic.
//   - SearchRanked returns the ranking order (tier, score, name, ID).
type Repository interface {
	Create(ctx context.Context, m domain.Member) error
	Update(ctx context.Context, m domain.Member) error

	GetByID(ctx context.Context, id domain.MemberID) (domain.Member, error)

	// FindActiveByEmail looks up the non-deleted member using email (case-insensitive).
	FindActiveByEmail(ctx context.Context, email string) (domain.Member, error)

	List(ctx context.Context, status domain.ActiveStatus) ([]domain.Member, error)

	// SearchRanked runs the ranked fuzzy search. Query validation is the caller's job,
	// but implementations must still reject invalid queries with ranking.ErrInvalidArgument.
	SearchRanked(ctx context.Context, q ranking.Query) (ranking.Page, error)
}
