package authority

import (
	"testing"

	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
)

func TestCanMatchesAuthorityTable(t *testing.T) {
	master := enums.PartyAuthorityMaster
	editor := enums.PartyAuthorityEditor
	member := enums.PartyAuthorityMember

	cases := []struct {
		action Action
		allow  []enums.PartyAuthority
		deny   []enums.PartyAuthority
	}{
		{ActionUpdateParty, []enums.PartyAuthority{master, editor}, []enums.PartyAuthority{member}},
		{ActionDeletePartyImage, []enums.PartyAuthority{master, editor}, []enums.PartyAuthority{member}},
		{ActionEndParty, []enums.PartyAuthority{master}, []enums.PartyAuthority{editor, member}},
		{ActionDeleteParty, []enums.PartyAuthority{master}, []enums.PartyAuthority{editor, member}},
		{ActionManageRecruitments, []enums.PartyAuthority{master, editor}, []enums.PartyAuthority{member}},
		{ActionReviewApplications, []enums.PartyAuthority{master, editor}, []enums.PartyAuthority{member}},
		{ActionListApplications, []enums.PartyAuthority{master, editor}, []enums.PartyAuthority{member}},
		{ActionRemoveMember, []enums.PartyAuthority{master}, []enums.PartyAuthority{editor, member}},
		{ActionChangeAuthority, []enums.PartyAuthority{master}, []enums.PartyAuthority{editor, member}},
		{ActionDelegateMaster, []enums.PartyAuthority{master}, []enums.PartyAuthority{editor, member}},
		{ActionLeaveParty, []enums.PartyAuthority{master, editor, member}, nil},
	}

	if len(cases) != len(Actions()) {
		t.Fatalf("table covers %d actions, policy defines %d", len(cases), len(Actions()))
	}

	for _, tc := range cases {
		for _, role := range tc.allow {
			if !Can(role, tc.action) {
				t.Fatalf("expected %s to be allowed %s", role, tc.action)
			}
		}
		for _, role := range tc.deny {
			if Can(role, tc.action) {
				t.Fatalf("expected %s to be denied %s", role, tc.action)
			}
		}
	}
}

func TestCanDeniesUnknownInputs(t *testing.T) {
	if Can("owner", ActionUpdateParty) {
		t.Fatal("unknown role must be denied")
	}
	if Can(enums.PartyAuthorityMaster, Action("launch_rockets")) {
		t.Fatal("unknown action must be denied")
	}
}

func TestRequireReturnsForbidden(t *testing.T) {
	if err := Require(enums.PartyAuthorityMaster, ActionDelegateMaster); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := Require(enums.PartyAuthorityEditor, ActionDelegateMaster)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["required"] != "master" {
		t.Fatalf("expected required authority in details, got %v", typed.Details())
	}
}
