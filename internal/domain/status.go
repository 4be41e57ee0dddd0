package domain

import (
	"fmt"
	"strings"
)

// ActiveStatus filters members by their soft-delete flag.
type ActiveStatus string

const (
	ActiveStatusActive  ActiveStatus = "active"
	ActiveStatusDeleted ActiveStatus = "deleted"
	ActiveStatusAll     ActiveStatus = "all"
)

// ParseActiveStatus parses a case-insensitive status name. The empty string means active.
func ParseActiveStatus(s string) (ActiveStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ActiveStatusActive):
		return ActiveStatusActive, nil
	case string(ActiveStatusDeleted):
		return ActiveStatusDeleted, nil
	case string(ActiveStatusAll):
		return ActiveStatusAll, nil
	default:
		return "", fmt.Errorf("unknown status %q (expected active|deleted|all)", s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s ActiveStatus) Valid() bool {
	switch s {
	case ActiveStatusActive, ActiveStatusDeleted, ActiveStatusAll:
		return true
	}
	return false
}

// Includes reports whether a member with the given soft-delete flag passes the filter.
func (s ActiveStatus) Includes(isDeleted bool) bool {
	switch s {
	case ActiveStatusActive:
		return !isDeleted
	case ActiveStatusDeleted:
		return isDeleted
	case ActiveStatusAll:
		return true
	}
	return false
}
