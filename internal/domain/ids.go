package domain

// SubjectID is the authenticated staff subject extracted from token claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the token issuer.
type SubjectID string

// MemberID is an internal identifier for a member record.
type MemberID string
