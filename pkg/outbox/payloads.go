package outbox

import "github.com/angelmondragon/partyhub-backend/pkg/enums"

type PartyEvent struct {
	PartyID int64             `json:"partyId"`
	Status  enums.PartyStatus `json:"status"`
	Title   string            `json:"title,omitempty"`
}

type PartyImageReleasedEvent struct {
	PartyID int64  `json:"partyId"`
	Image   string `json:"image"`
}

type RecruitmentEvent struct {
	PartyID         int64 `json:"partyId"`
	RecruitmentID   int64 `json:"recruitmentId"`
	PositionID      int64 `json:"positionId"`
	RecruitingCount int   `json:"recruitingCount"`
	RecruitedCount  int   `json:"recruitedCount"`
}

type ApplicationEvent struct {
	PartyID       int64                   `json:"partyId"`
	RecruitmentID *int64                  `json:"recruitmentId,omitempty"`
	ApplicationID int64                   `json:"applicationId"`
	UserID        int64                   `json:"userId"`
	Status        enums.ApplicationStatus `json:"status"`
}

type MemberEvent struct {
	PartyID     int64                `json:"partyId"`
	PartyUserID int64                `json:"partyUserId"`
	UserID      int64                `json:"userId"`
	Authority   enums.PartyAuthority `json:"authority"`
}

type MasterDelegatedEvent struct {
	PartyID        int64 `json:"partyId"`
	PreviousUserID int64 `json:"previousUserId"`
	NewUserID      int64 `json:"newUserId"`
}
