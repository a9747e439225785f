package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"secureauthhub/internal/model"
)

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) List(offset, limit int) ([]model.Item, error) {
	var items []model.Item
	if err := r.db.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items failed: %w", err)
	}
	return items, nil
}

func (r *ItemRepository) GetByID(id uint) (*model.Item, error) {
	var item model.Item
	if err := r.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	return &item, nil
}

func (r *ItemRepository) Create(item *model.Item) error {
	if err := r.db.Create(item).Error; err != nil {
		return fmt.Errorf("create item failed: %w", err)
	}
	return nil
}

// Update writes every column, so a nil description clears the stored one.
func (r *ItemRepository) Update(item *model.Item) error {
	if err := r.db.Save(item).Error; err != nil {
		return fmt.Errorf("update item failed: %w", err)
	}
	return nil
}

func (r *ItemRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Item{}, id).Error; err != nil {
		return fmt.Errorf("delete item failed: %w", err)
	}
	return nil
}
