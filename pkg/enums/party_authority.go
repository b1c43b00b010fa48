package enums

import "fmt"

// PartyAuthority is the role a member holds within a party.
type PartyAuthority string

const (
	PartyAuthorityMaster PartyAuthority = "master"
	PartyAuthorityEditor PartyAuthority = "editor"
	PartyAuthorityMember PartyAuthority = "member"
)

var validPartyAuthorities = []PartyAuthority{
	PartyAuthorityMaster,
	PartyAuthorityEditor,
	PartyAuthorityMember,
}

// String implements fmt.Stringer.
func (a PartyAuthority) String() string {
	return string(a)
}

// IsValid reports whether the value is a known PartyAuthority.
func (a PartyAuthority) IsValid() bool {
	for _, candidate := range validPartyAuthorities {
		if candidate == a {
			return true
		}
	}
	return false
}

// Rank orders authorities so MASTER > EDITOR > MEMBER. Unknown values rank 0.
func (a PartyAuthority) Rank() int {
	switch a {
	case PartyAuthorityMaster:
		return 3
	case PartyAuthorityEditor:
		return 2
	case PartyAuthorityMember:
		return 1
	default:
		return 0
	}
}

// ParsePartyAuthority converts raw input into a PartyAuthority.
func ParsePartyAuthority(value string) (PartyAuthority, error) {
	for _, candidate := range validPartyAuthorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid party authority %q", value)
}
