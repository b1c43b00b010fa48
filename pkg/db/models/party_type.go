package models

// PartyType is the reference catalogue of party categories.
type PartyType struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Description string `gorm:"column:description;type:varchar(60);not null;uniqueIndex"`
}

func (PartyType) TableName() string { return "party_types" }
