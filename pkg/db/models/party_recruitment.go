package models

import "time"

// PartyRecruitment is an open posting. The row is removed once RecruitedCount reaches RecruitingCount.
type PartyRecruitment struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PartyID         int64     `gorm:"column:party_id;not null;index"`
	PositionID      int64     `gorm:"column:position_id;not null"`
	Content         string    `gorm:"column:content;type:text;not null"`
	RecruitingCount int       `gorm:"column:recruiting_count;not null"`
	RecruitedCount  int       `gorm:"column:recruited_count;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Position *Position `gorm:"foreignKey:PositionID"`
}

func (PartyRecruitment) TableName() string { return "party_recruitments" }
