package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chitieu/internal/amqp"
	"chitieu/internal/categories"
	"chitieu/internal/core"
)

// CategoryService manages the user tier. The default tier is read-only
// here apart from SeedDefaults.
type CategoryService struct {
	deps Deps
}

func NewCategoryService(deps Deps) *CategoryService {
	return &CategoryService{deps: deps}
}

// List returns the merged category list of userID.
func (s *CategoryService) List(ctx context.Context, userID string) ([]core.Category, error) {
	dir, err := s.directory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dir.List(), nil
}

func (s *CategoryService) Create(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	if strings.TrimSpace(userID) == "" {
		return core.Category{}, core.ErrEmptyUser
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Icon = strings.TrimSpace(c.Icon)
	if c.Type == "" {
		c.Type = core.Expense
	}
	c.Tier = core.UserTier
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	if c.ID == "" {
		c.ID = s.deps.newID()
	} else {
		dir, err := s.directory(ctx, userID)
		if err != nil {
			return core.Category{}, err
		}
		if dir.IsDefault(c.ID) {
			return core.Category{}, core.ErrImmutableCategory
		}
	}

	if err := s.deps.Store.SaveUserCategories(ctx, userID, []core.Category{c}); err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "user_id", userID, "id", c.ID, "name", c.Name)
	s.deps.userChanged(ctx, userID, amqp.KindCategory, amqp.OpCreate)
	return c, nil
}

// Delete removes a user category. Default categories cannot be deleted.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	dir, err := s.directory(ctx, userID)
	if err != nil {
		return err
	}
	if dir.IsDefault(id) {
		return core.ErrImmutableCategory
	}
	if err := s.deps.Store.DeleteUserCategory(ctx, userID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	slog.InfoContext(ctx, "Category deleted", "user_id", userID, "id", id)
	s.deps.userChanged(ctx, userID, amqp.KindCategory, amqp.OpDelete)
	return nil
}

// SyncDefaults copies the default tier into the user tier, overwriting user
// categories with the same id. It returns how many were copied.
func (s *CategoryService) SyncDefaults(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, core.ErrEmptyUser
	}
	defaults, err := s.deps.Store.DefaultCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("load default categories: %w", err)
	}
	if len(defaults) == 0 {
		return 0, nil
	}
	copies := make([]core.Category, len(defaults))
	for i, c := range defaults {
		c.Tier = core.UserTier
		copies[i] = c
	}
	if err := s.deps.Store.SaveUserCategories(ctx, userID, copies); err != nil {
		return 0, fmt.Errorf("save categories: %w", err)
	}
	slog.InfoContext(ctx, "Default categories synced", "user_id", userID, "count", len(copies))
	s.deps.userChanged(ctx, userID, amqp.KindCategory, amqp.OpUpdate)
	return len(copies), nil
}

// SeedDefaults installs the built-in default categories.
func (s *CategoryService) SeedDefaults(ctx context.Context) (int, error) {
	defaults := categories.Defaults()
	if err := s.deps.Store.SaveDefaultCategories(ctx, defaults); err != nil {
		return 0, fmt.Errorf("seed default categories: %w", err)
	}
	if s.deps.Reports != nil {
		s.deps.Reports.InvalidateAll()
	}
	slog.InfoContext(ctx, "Default categories seeded", "count", len(defaults))
	return len(defaults), nil
}

func (s *CategoryService) directory(ctx context.Context, userID string) (*categories.Directory, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrEmptyUser
	}
	if s.deps.Reports != nil {
		return s.deps.Reports.Directory(ctx, userID)
	}
	defaults, err := s.deps.Store.DefaultCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	user, err := s.deps.Store.UserCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return categories.NewDirectory(defaults, user), nil
}
