package outbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
)

// EventDescriptor links an event type to its aggregate, topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   PayloadEnvelope
	Payload    interface{}
}

// NonRetryableError signals the publisher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes every party lifecycle event to the given topic.
func NewEventRegistry(topic string) (*EventRegistry, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("party events topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	partyPayload := func() interface{} { return &PartyEvent{} }
	recruitmentPayload := func() interface{} { return &RecruitmentEvent{} }
	applicationPayload := func() interface{} { return &ApplicationEvent{} }
	memberPayload := func() interface{} { return &MemberEvent{} }

	for _, desc := range []EventDescriptor{
		{EventType: enums.EventPartyCreated, AggregateType: enums.AggregateParty, PayloadFactory: partyPayload},
		{EventType: enums.EventPartyUpdated, AggregateType: enums.AggregateParty, PayloadFactory: partyPayload},
		{EventType: enums.EventPartyArchived, AggregateType: enums.AggregateParty, PayloadFactory: partyPayload},
		{EventType: enums.EventPartyDeleted, AggregateType: enums.AggregateParty, PayloadFactory: partyPayload},
		{EventType: enums.EventPartyImageReleased, AggregateType: enums.AggregateParty, PayloadFactory: func() interface{} { return &PartyImageReleasedEvent{} }},
		{EventType: enums.EventRecruitmentOpened, AggregateType: enums.AggregateRecruitment, PayloadFactory: recruitmentPayload},
		{EventType: enums.EventRecruitmentUpdated, AggregateType: enums.AggregateRecruitment, PayloadFactory: recruitmentPayload},
		{EventType: enums.EventRecruitmentClosed, AggregateType: enums.AggregateRecruitment, PayloadFactory: recruitmentPayload},
		{EventType: enums.EventApplicationSubmitted, AggregateType: enums.AggregateApplication, PayloadFactory: applicationPayload},
		{EventType: enums.EventApplicationApproved, AggregateType: enums.AggregateApplication, PayloadFactory: applicationPayload},
		{EventType: enums.EventApplicationRejected, AggregateType: enums.AggregateApplication, PayloadFactory: applicationPayload},
		{EventType: enums.EventMemberAdmitted, AggregateType: enums.AggregatePartyUser, PayloadFactory: memberPayload},
		{EventType: enums.EventMemberRemoved, AggregateType: enums.AggregatePartyUser, PayloadFactory: memberPayload},
		{EventType: enums.EventMemberAuthorityChanged, AggregateType: enums.AggregatePartyUser, PayloadFactory: memberPayload},
		{EventType: enums.EventMasterDelegated, AggregateType: enums.AggregateParty, PayloadFactory: func() interface{} { return &MasterDelegatedEvent{} }},
	} {
		desc.Topic = topic
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Descriptor returns the registered descriptor for eventType.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve decodes the envelope and typed payload of an outbox row.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[row.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("event type %s not registered", row.EventType))
	}
	if desc.AggregateType != row.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("event %s expects aggregate %s, got %s", row.EventType, desc.AggregateType, row.AggregateType))
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	payload := desc.PayloadFactory()
	decoder := json.NewDecoder(bytes.NewReader(envelope.Data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", row.EventType, err))
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
