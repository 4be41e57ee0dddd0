package domain

import "time"

// Member is the domain representation of a museum member record.
type Member struct {
	ID MemberID

	Name  string
	Email string
	Phone *string

	// IsDeleted is a soft-delete flag; deleted members keep their row but leave the active population.
	IsDeleted bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of m.
func (m Member) Clone() Member {
	out := m
	if m.Phone != nil {
		v := *m.Phone
		out.Phone = &v
	}
	return out
}
