package models

import (
	"time"

	"github.com/angelmondragon/partyhub-backend/pkg/enums"
)

// PartyUser is a user's membership in a party. (user_id, party_id) is unique.
type PartyUser struct {
	ID         int64                `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64                `gorm:"column:user_id;not null;uniqueIndex:ux_party_users_user_party,priority:1"`
	PartyID    int64                `gorm:"column:party_id;not null;uniqueIndex:ux_party_users_user_party,priority:2;index"`
	PositionID int64                `gorm:"column:position_id;not null"`
	Authority  enums.PartyAuthority `gorm:"column:authority;type:varchar(16);not null"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	Position *Position `gorm:"foreignKey:PositionID"`
}

func (PartyUser) TableName() string { return "party_users" }
