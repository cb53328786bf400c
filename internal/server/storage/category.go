package storage

import (
	"context"

	"github.com/andsokolov/taskdeck/internal/models"
)

// CategoryStorage defines the small slice of category persistence this
// service needs: seeding the default board columns for a new user.
// Full category CRUD lives in the task service.
type CategoryStorage interface {
	// CreateCategories inserts the given categories in a single transaction
	CreateCategories(ctx context.Context, categories []*models.Category) error
}
