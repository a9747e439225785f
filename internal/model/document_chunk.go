package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DocumentChunk is one window of a document's text plus its embedding vector.
type DocumentChunk struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	DocumentID uint           `gorm:"not null;index" json:"document_id"`
	Ordinal    int            `gorm:"not null" json:"ordinal"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Embedding  datatypes.JSON `json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// EmbeddingVector decodes the stored vector. A missing or malformed value
// yields an empty vector, which scores zero against any query.
func (c *DocumentChunk) EmbeddingVector() []float32 {
	if len(c.Embedding) == 0 {
		return nil
	}
	var v []float32
	_ = json.Unmarshal(c.Embedding, &v)
	return v
}

func (c *DocumentChunk) SetEmbedding(vec []float32) {
	if vec == nil {
		vec = []float32{}
	}
	b, _ := json.Marshal(vec)
	c.Embedding = datatypes.JSON(b)
}
