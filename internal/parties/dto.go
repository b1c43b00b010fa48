package parties

import (
	"strings"
	"time"

	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

const (
	maxTitleLength = 60
	maxImageLength = 255
)

// CreatePartyInput holds creation-time data for a new party. PositionID is the creator's own position.
type CreatePartyInput struct {
	TypeID     int64
	Title      string
	Content    string
	Image      *string
	PositionID int64
}

// Validate checks the field-level rules of a new party.
func (in CreatePartyInput) Validate() error {
	details := map[string]any{}
	if in.TypeID <= 0 {
		details["type_id"] = "required"
	}
	if title := strings.TrimSpace(in.Title); title == "" {
		details["title"] = "required"
	} else if len([]rune(title)) > maxTitleLength {
		details["title"] = "too long"
	}
	if strings.TrimSpace(in.Content) == "" {
		details["content"] = "required"
	}
	if in.Image != nil && len(*in.Image) > maxImageLength {
		details["image"] = "too long"
	}
	if in.PositionID <= 0 {
		details["position_id"] = "required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid party").WithDetails(details)
	}
	return nil
}

// ToModel maps the input into a new active party row.
func (in CreatePartyInput) ToModel() *models.Party {
	return &models.Party{
		PartyTypeID: in.TypeID,
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Image:       in.Image,
		Status:      enums.PartyStatusActive,
	}
}

// UpdatePartyInput carries a partial update; nil fields are left untouched.
type UpdatePartyInput struct {
	TypeID  *int64
	Title   *string
	Content *string
	Image   *string
}

// IsEmpty reports whether no field was provided.
func (in UpdatePartyInput) IsEmpty() bool {
	return in.TypeID == nil && in.Title == nil && in.Content == nil && in.Image == nil
}

// Validate checks the provided fields.
func (in UpdatePartyInput) Validate() error {
	if in.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	details := map[string]any{}
	if in.TypeID != nil && *in.TypeID <= 0 {
		details["type_id"] = "invalid"
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			details["title"] = "required"
		} else if len([]rune(title)) > maxTitleLength {
			details["title"] = "too long"
		}
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		details["content"] = "required"
	}
	if in.Image != nil && (strings.TrimSpace(*in.Image) == "" || len(*in.Image) > maxImageLength) {
		details["image"] = "invalid"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid party update").WithDetails(details)
	}
	return nil
}

// Apply copies the provided fields onto p and returns the image it replaced, if any.
func (in UpdatePartyInput) Apply(p *models.Party) (replaced *string) {
	if in.TypeID != nil {
		p.PartyTypeID = *in.TypeID
	}
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Image != nil {
		if p.Image != nil && *p.Image != *in.Image {
			old := *p.Image
			replaced = &old
		}
		img := *in.Image
		p.Image = &img
	}
	return replaced
}

// Sort columns accepted by ListParties.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortTitle     = "title"
)

var sortableColumns = map[string]struct{}{
	SortCreatedAt: {},
	SortUpdatedAt: {},
	SortTitle:     {},
}

// ListQuery filters and orders the party listing.
type ListQuery struct {
	Page    pagination.Params
	Sort    string
	Order   pagination.Order
	Status  *enums.PartyStatus
	TypeIDs []int64
	Title   string
}

// Normalize fills defaults and rejects unknown sort columns.
func (q ListQuery) Normalize() (ListQuery, error) {
	q.Page = q.Page.Normalize()
	if q.Sort == "" {
		q.Sort = SortCreatedAt
	}
	if _, ok := sortableColumns[q.Sort]; !ok {
		return q, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort").WithDetails(map[string]any{"sort": q.Sort})
	}
	if q.Order == "" {
		q.Order = pagination.OrderDesc
	}
	if q.Status != nil && !q.Status.IsValid() {
		return q, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").WithDetails(map[string]any{"status": string(*q.Status)})
	}
	q.Title = strings.TrimSpace(q.Title)
	return q, nil
}

// PartyDTO exposes party data in API responses.
type PartyDTO struct {
	ID               int64             `json:"id"`
	TypeID           int64             `json:"type_id"`
	TypeDescription  string            `json:"type_description,omitempty"`
	Title            string            `json:"title"`
	Content          string            `json:"content"`
	Image            *string           `json:"image,omitempty"`
	Status           enums.PartyStatus `json:"status"`
	RecruitmentCount int64             `json:"recruitment_count"`
	MemberCount      int64             `json:"member_count"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	ArchivedAt       *time.Time        `json:"archived_at,omitempty"`
}

// FromModel maps the persisted party into a DTO.
func FromModel(m *models.Party) *PartyDTO {
	if m == nil {
		return nil
	}
	dto := &PartyDTO{
		ID:         m.ID,
		TypeID:     m.PartyTypeID,
		Title:      m.Title,
		Content:    m.Content,
		Image:      m.Image,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		ArchivedAt: m.ArchivedAt,
	}
	if m.PartyType != nil {
		dto.TypeDescription = m.PartyType.Description
	}
	return dto
}

// PartyTypeDTO is one entry of the party type catalogue.
type PartyTypeDTO struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}
