package storage

import (
	"context"
	"time"

	"github.com/andsokolov/taskdeck/internal/models"
)

// UserStorage defines interface for user and refresh-credential persistence.
// The refresh credential lives inline on the user row, so this interface is
// also the credential store: at most one valid refresh credential exists
// per user at any time, and every write overwrites the previous value.
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username or email is already taken
	// (email comparison is case-insensitive; callers store emails lowercased)
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves user by email (expects a lowercased email)
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByRefreshDigest retrieves the user holding the given refresh
	// secret digest. Returns ErrUserNotFound if no user has it stored.
	GetUserByRefreshDigest(ctx context.Context, digest string) (*models.User, error)

	// SetRefreshCredential unconditionally overwrites the user's refresh
	// credential (login/register path). The previous credential, if any,
	// becomes invalid immediately.
	// Returns ErrUserNotFound if user doesn't exist
	SetRefreshCredential(ctx context.Context, userID, digest string, expiresAt time.Time) error

	// RotateRefreshCredential atomically replaces the refresh credential,
	// but only if oldDigest is still the stored one (compare-and-swap).
	// Returns ErrCredentialConflict when the stored credential no longer
	// matches oldDigest: a concurrent refresh already rotated it, and the
	// presented secret must be treated as spent.
	RotateRefreshCredential(ctx context.Context, userID, oldDigest, newDigest string, expiresAt time.Time) error

	// ClearRefreshCredential removes the user's refresh credential.
	// Idempotent: clearing an absent credential is not an error.
	ClearRefreshCredential(ctx context.Context, userID string) error
}
