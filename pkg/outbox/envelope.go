package outbox

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/angelmondragon/partyhub-backend/pkg/enums"
)

// ActorRef is the member whose command produced the event. System driven events,
// such as rejections during a party close, still carry the closing actor.
type ActorRef struct {
	UserID    int64  `json:"userId"`
	PartyID   *int64 `json:"partyId,omitempty"`
	Authority string `json:"authority,omitempty"`
}

// PayloadEnvelope is what consumers receive as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int                   `json:"version"`
	EventID    string                `json:"eventId"`
	Type       enums.OutboxEventType `json:"type"`
	PartyID    int64                 `json:"partyId"`
	OccurredAt time.Time             `json:"occurredAt"`
	Actor      *ActorRef             `json:"actor,omitempty"`
	Data       json.RawMessage       `json:"data"`
}

// OrderingKey groups every event of one party so consumers see them in commit order.
func OrderingKey(partyID int64) string {
	return "party-" + strconv.FormatInt(partyID, 10)
}
