package service

import (
	"context"

	"obligation-tracker/internal/model"
	"obligation-tracker/internal/repository"
)

// CategoryService provides helpers around expense categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, user *model.User) ([]model.Category, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

// Canonical returns the stored spelling of name, creating the category on first use.
func (s *CategoryService) Canonical(ctx context.Context, user *model.User, name string) (string, error) {
	category, err := s.repo.GetOrCreate(ctx, user.ID, name)
	if err != nil || category == nil {
		return "", err
	}
	return category.Name, nil
}
