package recruitments

import (
	"strings"
	"time"

	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

// MaxBatchOpen caps how many postings one command may open.
const MaxBatchOpen = 5

// OpenInput describes a new posting.
type OpenInput struct {
	PositionID      int64
	Content         string
	RecruitingCount int
}

// Validate checks the field-level rules of a posting.
func (in OpenInput) Validate() error {
	details := map[string]any{}
	if in.PositionID <= 0 {
		details["position_id"] = "required"
	}
	if strings.TrimSpace(in.Content) == "" {
		details["content"] = "required"
	}
	if in.RecruitingCount < 1 {
		details["recruiting_count"] = "must be at least 1"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid recruitment").WithDetails(details)
	}
	return nil
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	PositionID      *int64
	Content         *string
	RecruitingCount *int
}

// IsEmpty reports whether no field was provided.
func (in UpdateInput) IsEmpty() bool {
	return in.PositionID == nil && in.Content == nil && in.RecruitingCount == nil
}

// Validate checks the provided fields in isolation; capacity against the filled count is checked by the ledger.
func (in UpdateInput) Validate() error {
	if in.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	details := map[string]any{}
	if in.PositionID != nil && *in.PositionID <= 0 {
		details["position_id"] = "invalid"
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		details["content"] = "required"
	}
	if in.RecruitingCount != nil && *in.RecruitingCount < 1 {
		details["recruiting_count"] = "must be at least 1"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid recruitment update").WithDetails(details)
	}
	return nil
}

// ListQuery filters a party's postings.
type ListQuery struct {
	Main  string
	Order pagination.Order
}

// RecruitmentDTO exposes posting data in API responses.
type RecruitmentDTO struct {
	ID               int64     `json:"id"`
	PartyID          int64     `json:"party_id"`
	PartyTitle       string    `json:"party_title,omitempty"`
	PartyImage       *string   `json:"party_image,omitempty"`
	PositionID       int64     `json:"position_id"`
	Main             string    `json:"main"`
	Sub              string    `json:"sub"`
	Content          string    `json:"content"`
	RecruitingCount  int       `json:"recruiting_count"`
	RecruitedCount   int       `json:"recruited_count"`
	ApplicationCount int64     `json:"application_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// FromModel maps the persisted posting into a DTO.
func FromModel(m *models.PartyRecruitment) *RecruitmentDTO {
	if m == nil {
		return nil
	}
	dto := &RecruitmentDTO{
		ID:              m.ID,
		PartyID:         m.PartyID,
		PositionID:      m.PositionID,
		Content:         m.Content,
		RecruitingCount: m.RecruitingCount,
		RecruitedCount:  m.RecruitedCount,
		CreatedAt:       m.CreatedAt,
	}
	if m.Position != nil {
		dto.Main = m.Position.Main
		dto.Sub = m.Position.Sub
	}
	return dto
}
