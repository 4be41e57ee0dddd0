package members

import "github.com/museum-members/member-registry-api/internal/domain"

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

type RegisterMemberInput struct {
	Name  string
	Email string
	Phone *string
}

type UpdateMemberInput struct {
	Name  Optional[string] // cannot be null
	Email Optional[string] // cannot be null
	Phone Optional[string] // null clears
}

type SearchMembersInput struct {
	// Query unspecified or null is rejected; an empty string is valid and matches nothing.
	Query  Optional[string]
	Status domain.ActiveStatus // empty means active

	PageNumber *int // defaults to 0
	PageSize   *int // defaults to Service.DefaultPageSize
}
