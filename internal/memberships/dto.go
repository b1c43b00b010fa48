package memberships

import (
	"time"

	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

// Sort columns accepted by ListMembers.
const (
	SortCreatedAt = "created_at"
	SortAuthority = "authority"
)

// ListQuery filters and orders a party roster.
type ListQuery struct {
	Main  string
	Sort  string
	Order pagination.Order
}

// Normalize fills defaults and rejects unknown sort columns.
func (q ListQuery) Normalize() (ListQuery, error) {
	if q.Sort == "" {
		q.Sort = SortCreatedAt
	}
	if q.Sort != SortCreatedAt && q.Sort != SortAuthority {
		return q, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort").WithDetails(map[string]any{"sort": q.Sort})
	}
	if q.Order == "" {
		q.Order = pagination.OrderAsc
	}
	return q, nil
}

// MemberDTO is one roster entry.
type MemberDTO struct {
	ID         int64                `json:"id"`
	UserID     int64                `json:"user_id"`
	PartyID    int64                `json:"party_id"`
	PositionID int64                `json:"position_id"`
	Main       string               `json:"main"`
	Sub        string               `json:"sub"`
	Authority  enums.PartyAuthority `json:"authority"`
	CreatedAt  time.Time            `json:"created_at"`
}
