package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"secureauthhub/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// ListByOwnerID returns the owner's documents newest first, without extracted text.
func (r *DocumentRepository) ListByOwnerID(ownerID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Omit("extracted_text").
		Where("owner_id = ?", ownerID).
		Order("uploaded_at DESC, id DESC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// ListIDsByOwnerID returns the ids of every document the owner holds.
func (r *DocumentRepository) ListIDsByOwnerID(ownerID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.Document{}).Where("owner_id = ?", ownerID).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list document ids failed: %w", err)
	}
	return ids, nil
}

// FilterOwnedIDs keeps only the ids that belong to ownerID.
func (r *DocumentRepository) FilterOwnedIDs(ownerID uint, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var owned []uint
	if err := r.db.Model(&model.Document{}).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Pluck("id", &owned).Error; err != nil {
		return nil, fmt.Errorf("filter document ids failed: %w", err)
	}
	return owned, nil
}

func (r *DocumentRepository) GetByIDAndOwnerID(id, ownerID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) DeleteByIDAndOwnerID(id, ownerID uint) error {
	if err := r.db.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
