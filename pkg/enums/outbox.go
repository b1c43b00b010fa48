package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateParty       OutboxAggregateType = "party"
	AggregateRecruitment OutboxAggregateType = "party_recruitment"
	AggregateApplication OutboxAggregateType = "party_application"
	AggregatePartyUser   OutboxAggregateType = "party_user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateParty,
	AggregateRecruitment,
	AggregateApplication,
	AggregatePartyUser,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a committed party lifecycle change.
type OutboxEventType string

const (
	EventPartyCreated           OutboxEventType = "party_created"
	EventPartyUpdated           OutboxEventType = "party_updated"
	EventPartyArchived          OutboxEventType = "party_archived"
	EventPartyDeleted           OutboxEventType = "party_deleted"
	EventPartyImageReleased     OutboxEventType = "party_image_released"
	EventRecruitmentOpened      OutboxEventType = "recruitment_opened"
	EventRecruitmentUpdated     OutboxEventType = "recruitment_updated"
	EventRecruitmentClosed      OutboxEventType = "recruitment_closed"
	EventApplicationSubmitted   OutboxEventType = "application_submitted"
	EventApplicationApproved    OutboxEventType = "application_approved"
	EventApplicationRejected    OutboxEventType = "application_rejected"
	EventMemberAdmitted         OutboxEventType = "member_admitted"
	EventMemberRemoved          OutboxEventType = "member_removed"
	EventMemberAuthorityChanged OutboxEventType = "member_authority_changed"
	EventMasterDelegated        OutboxEventType = "master_delegated"
)

var validEventTypes = []OutboxEventType{
	EventPartyCreated,
	EventPartyUpdated,
	EventPartyArchived,
	EventPartyDeleted,
	EventPartyImageReleased,
	EventRecruitmentOpened,
	EventRecruitmentUpdated,
	EventRecruitmentClosed,
	EventApplicationSubmitted,
	EventApplicationApproved,
	EventApplicationRejected,
	EventMemberAdmitted,
	EventMemberRemoved,
	EventMemberAuthorityChanged,
	EventMasterDelegated,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
