package model

import "time"

type User struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Username     string        `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string        `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string        `gorm:"size:255;not null" json:"-"`
	Documents    []Document    `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	ChatSessions []ChatSession `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
