package model

import "time"

type Document struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       uint      `gorm:"not null;index" json:"owner_id"`
	Filename      string    `gorm:"size:255;not null;index" json:"filename"`
	S3URL         string    `gorm:"column:s3_url;size:1024;not null" json:"s3_url"`
	ObjectKey     string    `gorm:"size:512;not null" json:"-"`
	ContentType   string    `gorm:"size:128" json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	ExtractedText string    `gorm:"type:text" json:"extracted_text,omitempty"`
	UploadedAt    time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	Chunks []DocumentChunk `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}
