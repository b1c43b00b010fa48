package models

// Position is the reference catalogue of roles a member can fill.
type Position struct {
	ID   int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Main string `gorm:"column:main;type:varchar(30);not null;index"`
	Sub  string `gorm:"column:sub;type:varchar(30);not null"`
}

func (Position) TableName() string { return "positions" }
