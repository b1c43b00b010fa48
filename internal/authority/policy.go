// Package authority decides which party roles may perform which actions.
// It is a pure lookup table with no I/O.
package authority

import (
	"fmt"

	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
)

// Action is a capability guarded by party authority.
type Action string

const (
	ActionUpdateParty        Action = "update_party"
	ActionDeletePartyImage   Action = "delete_party_image"
	ActionEndParty           Action = "end_party"
	ActionDeleteParty        Action = "delete_party"
	ActionManageRecruitments Action = "manage_recruitments"
	ActionReviewApplications Action = "review_applications"
	ActionListApplications   Action = "list_applications"
	ActionRemoveMember       Action = "remove_member"
	ActionChangeAuthority    Action = "change_authority"
	ActionDelegateMaster     Action = "delegate_master"
	ActionLeaveParty         Action = "leave_party"
)

var minimumAuthority = map[Action]enums.PartyAuthority{
	ActionUpdateParty:        enums.PartyAuthorityEditor,
	ActionDeletePartyImage:   enums.PartyAuthorityEditor,
	ActionEndParty:           enums.PartyAuthorityMaster,
	ActionDeleteParty:        enums.PartyAuthorityMaster,
	ActionManageRecruitments: enums.PartyAuthorityEditor,
	ActionReviewApplications: enums.PartyAuthorityEditor,
	ActionListApplications:   enums.PartyAuthorityEditor,
	ActionRemoveMember:       enums.PartyAuthorityMaster,
	ActionChangeAuthority:    enums.PartyAuthorityMaster,
	ActionDelegateMaster:     enums.PartyAuthorityMaster,
	ActionLeaveParty:         enums.PartyAuthorityMember,
}

// Actions lists every guarded action.
func Actions() []Action {
	out := make([]Action, 0, len(minimumAuthority))
	for action := range minimumAuthority {
		out = append(out, action)
	}
	return out
}

// MinimumAuthority returns the lowest role allowed to perform action.
func MinimumAuthority(action Action) (enums.PartyAuthority, bool) {
	role, ok := minimumAuthority[action]
	return role, ok
}

// Can reports whether role may perform action. Unknown actions and roles are denied.
func Can(role enums.PartyAuthority, action Action) bool {
	required, ok := minimumAuthority[action]
	if !ok || !role.IsValid() {
		return false
	}
	return role.Rank() >= required.Rank()
}

// Require returns a FORBIDDEN error naming the missing capability.
func Require(role enums.PartyAuthority, action Action) error {
	if Can(role, action) {
		return nil
	}
	required, _ := minimumAuthority[action]
	return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s requires %s authority", action, required)).
		WithDetails(map[string]any{"action": string(action), "required": string(required), "actual": string(role)})
}
