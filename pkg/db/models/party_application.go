package models

import (
	"time"

	"github.com/angelmondragon/partyhub-backend/pkg/enums"
)

// PartyApplication is a candidate's request to fill a recruitment. PartyID is kept
// so decided applications stay attributable after their recruitment closes.
type PartyApplication struct {
	ID                 int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	UserID             int64                   `gorm:"column:user_id;not null;uniqueIndex:ux_party_applications_open,where:status <> 'approved' AND status <> 'rejected'"`
	PartyID            int64                   `gorm:"column:party_id;not null;index"`
	PartyRecruitmentID *int64                  `gorm:"column:party_recruitment_id;uniqueIndex:ux_party_applications_open,where:status <> 'approved' AND status <> 'rejected';index"`
	Message            string                  `gorm:"column:message;type:text;not null"`
	Status             enums.ApplicationStatus `gorm:"column:status;type:varchar(16);not null;default:pending"`
	DecidedBy          *int64                  `gorm:"column:decided_by"`
	DecidedAt          *time.Time              `gorm:"column:decided_at"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (PartyApplication) TableName() string { return "party_applications" }
