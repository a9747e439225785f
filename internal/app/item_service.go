package app

import (
	"errors"
	"strings"

	"secureauthhub/internal/model"
	"secureauthhub/internal/repository"
)

const (
	defaultItemLimit = 10
	maxItemLimit     = 100
	maxItemNameLen   = 128
)

var ErrItemNotFound = errors.New("item not found")

type ItemService struct {
	itemRepo *repository.ItemRepository
}

type ItemInput struct {
	Name        string
	Description *string
}

func NewItemService(itemRepo *repository.ItemRepository) *ItemService {
	return &ItemService{itemRepo: itemRepo}
}

func (s *ItemService) List(skip, limit int) ([]model.Item, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultItemLimit
	}
	if limit > maxItemLimit {
		limit = maxItemLimit
	}
	return s.itemRepo.List(skip, limit)
}

func (s *ItemService) Get(id uint) (*model.Item, error) {
	item, err := s.itemRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *ItemService) Create(input ItemInput) (*model.Item, error) {
	name, err := validateItemName(input.Name)
	if err != nil {
		return nil, err
	}
	item := &model.Item{Name: name, Description: input.Description}
	if err := s.itemRepo.Create(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update replaces both fields of an existing item.
func (s *ItemService) Update(id uint, input ItemInput) (*model.Item, error) {
	name, err := validateItemName(input.Name)
	if err != nil {
		return nil, err
	}
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	item.Name = name
	item.Description = input.Description
	if err := s.itemRepo.Update(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.itemRepo.Delete(id)
}

func validateItemName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxItemNameLen {
		return "", ErrInvalidInput
	}
	return name, nil
}
