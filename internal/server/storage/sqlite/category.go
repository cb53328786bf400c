package sqlite

import (
	"context"
	"fmt"

	"github.com/andsokolov/taskdeck/internal/models"
	"github.com/andsokolov/taskdeck/internal/server/storage"
)

// Compile-time checks that Storage implements the storage interfaces
var (
	_ storage.UserStorage     = (*Storage)(nil)
	_ storage.CategoryStorage = (*Storage)(nil)
)

// CreateCategories inserts the given categories in a single transaction.
// Used to seed the default board columns for a freshly registered user.
func (s *Storage) CreateCategories(ctx context.Context, categories []*models.Category) error {
	if len(categories) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO categories (id, user_id, name, position, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	for _, category := range categories {
		if _, err := tx.ExecContext(ctx, query,
			category.ID,
			category.UserID,
			category.Name,
			category.Position,
			category.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
