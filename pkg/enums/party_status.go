package enums

import "fmt"

// PartyStatus is the lifecycle state of a party.
type PartyStatus string

const (
	PartyStatusActive   PartyStatus = "active"
	PartyStatusArchived PartyStatus = "archived"
	PartyStatusDeleted  PartyStatus = "deleted"
)

var validPartyStatuses = []PartyStatus{
	PartyStatusActive,
	PartyStatusArchived,
	PartyStatusDeleted,
}

// String implements fmt.Stringer.
func (s PartyStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PartyStatus.
func (s PartyStatus) IsValid() bool {
	for _, candidate := range validPartyStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePartyStatus converts raw input into a PartyStatus.
func ParsePartyStatus(value string) (PartyStatus, error) {
	for _, candidate := range validPartyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid party status %q", value)
}
