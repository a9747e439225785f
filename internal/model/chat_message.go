package model

import "time"

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	Sender    string    `gorm:"size:16;not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
