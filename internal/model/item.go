package model

type Item struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"size:128;not null;index" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
}

func (Item) TableName() string {
	return "items"
}
