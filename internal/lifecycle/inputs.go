package lifecycle

import (
	"github.com/angelmondragon/partyhub-backend/internal/applications"
	"github.com/angelmondragon/partyhub-backend/internal/parties"
	"github.com/angelmondragon/partyhub-backend/internal/recruitments"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
)

// CreatePartyInput founds a party; FounderID becomes its MASTER.
type CreatePartyInput struct {
	FounderID int64
	Party     parties.CreatePartyInput
}

// PartyCommand addresses a party on behalf of an actor.
type PartyCommand struct {
	ActorID int64
	PartyID int64
}

type UpdatePartyInput struct {
	ActorID int64
	PartyID int64
	Fields  parties.UpdatePartyInput
}

type CreateRecruitmentInput struct {
	ActorID     int64
	PartyID     int64
	Recruitment recruitments.OpenInput
}

type CreateRecruitmentsInput struct {
	ActorID      int64
	PartyID      int64
	Recruitments []recruitments.OpenInput
}

type UpdateRecruitmentInput struct {
	ActorID       int64
	PartyID       int64
	RecruitmentID int64
	Fields        recruitments.UpdateInput
}

// RecruitmentCommand addresses one recruitment of a party on behalf of an actor.
type RecruitmentCommand struct {
	ActorID       int64
	PartyID       int64
	RecruitmentID int64
}

type BatchDeleteRecruitmentsInput struct {
	ActorID        int64
	PartyID        int64
	RecruitmentIDs []int64
}

type SubmitApplicationInput struct {
	UserID        int64
	PartyID       int64
	RecruitmentID int64
	Application   applications.SubmitInput
}

// ApplicationDecisionInput is shared by approve and reject.
type ApplicationDecisionInput struct {
	ActorID       int64
	PartyID       int64
	ApplicationID int64
}

type ListApplicationsInput struct {
	ActorID       int64
	PartyID       int64
	RecruitmentID int64
	Query         applications.ListQuery
}

// ApprovalResult describes what an approval changed. Recruitment is nil once the posting closed.
type ApprovalResult struct {
	Application       applications.ApplicationDTO  `json:"application"`
	PartyUserID       int64                        `json:"party_user_id"`
	Recruitment       *recruitments.RecruitmentDTO `json:"recruitment,omitempty"`
	RecruitmentClosed bool                         `json:"recruitment_closed"`
}

type RemoveMemberInput struct {
	ActorID     int64
	PartyID     int64
	PartyUserID int64
}

type BatchRemoveMembersInput struct {
	ActorID      int64
	PartyID      int64
	PartyUserIDs []int64
}

type DelegateMasterInput struct {
	ActorID         int64
	PartyID         int64
	NewMasterUserID int64
}

// ChangeAuthorityInput promotes a MEMBER to EDITOR or demotes an EDITOR to MEMBER.
type ChangeAuthorityInput struct {
	ActorID     int64
	PartyID     int64
	PartyUserID int64
	Authority   enums.PartyAuthority
}
