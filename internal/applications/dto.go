package applications

import (
	"strings"
	"time"

	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

const maxMessageLength = 500

// SubmitInput is what a candidate sends with an application.
type SubmitInput struct {
	Message string
}

// Validate checks the message.
func (in SubmitInput) Validate() error {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message is required").
			WithDetails(map[string]any{"message": "required"})
	}
	if len([]rune(msg)) > maxMessageLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "message is too long").
			WithDetails(map[string]any{"message": "too long"})
	}
	return nil
}

// ListQuery pages through the applications of one recruitment.
type ListQuery struct {
	Page   pagination.Params
	Status *enums.ApplicationStatus
	Order  pagination.Order
}

// ApplicationDTO exposes application data in API responses.
type ApplicationDTO struct {
	ID            int64                   `json:"id"`
	UserID        int64                   `json:"user_id"`
	PartyID       int64                   `json:"party_id"`
	RecruitmentID *int64                  `json:"recruitment_id,omitempty"`
	Message       string                  `json:"message"`
	Status        enums.ApplicationStatus `json:"status"`
	DecidedBy     *int64                  `json:"decided_by,omitempty"`
	DecidedAt     *time.Time              `json:"decided_at,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// FromModel maps the persisted application into a DTO.
func FromModel(m *models.PartyApplication) *ApplicationDTO {
	if m == nil {
		return nil
	}
	return &ApplicationDTO{
		ID:            m.ID,
		UserID:        m.UserID,
		PartyID:       m.PartyID,
		RecruitmentID: m.PartyRecruitmentID,
		Message:       m.Message,
		Status:        m.Status,
		DecidedBy:     m.DecidedBy,
		DecidedAt:     m.DecidedAt,
		CreatedAt:     m.CreatedAt,
	}
}
