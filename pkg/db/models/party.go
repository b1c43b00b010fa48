package models

import (
	"time"

	"github.com/angelmondragon/partyhub-backend/pkg/enums"
)

// Party is a team being formed. Rows are never hard-deleted; deletion is a status change.
type Party struct {
	ID          int64             `gorm:"column:id;primaryKey;autoIncrement"`
	PartyTypeID int64             `gorm:"column:party_type_id;not null;index"`
	Title       string            `gorm:"column:title;type:varchar(60);not null"`
	Content     string            `gorm:"column:content;type:text;not null"`
	Image       *string           `gorm:"column:image;type:varchar(255)"`
	Status      enums.PartyStatus `gorm:"column:status;type:varchar(16);not null;default:active;index"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	ArchivedAt  *time.Time        `gorm:"column:archived_at"`
	DeletedAt   *time.Time        `gorm:"column:deleted_at"`

	PartyType *PartyType `gorm:"foreignKey:PartyTypeID"`
}

func (Party) TableName() string { return "parties" }
