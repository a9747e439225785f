package model

import "time"

type ChatSession struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	UserID    uint          `gorm:"not null;index" json:"user_id"`
	StartedAt time.Time     `gorm:"autoCreateTime" json:"started_at"`
	Messages  []ChatMessage `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
