package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andsokolov/taskdeck/internal/models"
	"github.com/andsokolov/taskdeck/internal/server/storage"
)

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, refresh_secret_hash, refresh_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.RefreshSecretHash,
		user.RefreshExpiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Проверяем на duplicate username/email
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves user by email (email is stored lowercased)
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserBy(ctx, "email = ?", email)
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.getUserBy(ctx, "id = ?", userID)
}

// GetUserByRefreshDigest retrieves the user holding the given refresh
// secret digest. An empty digest never matches anyone: '' means
// "no credential stored", not a lookup key.
func (s *Storage) GetUserByRefreshDigest(ctx context.Context, digest string) (*models.User, error) {
	if digest == "" {
		return nil, storage.ErrUserNotFound
	}
	return s.getUserBy(ctx, "refresh_secret_hash = ?", digest)
}

// getUserBy выполняет выборку пользователя по одному условию
func (s *Storage) getUserBy(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, refresh_secret_hash, refresh_expires_at, created_at, updated_at
		FROM users
		WHERE ` + where

	user := &models.User{}

	err := s.db.GetContext(ctx, user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// SetRefreshCredential unconditionally overwrites the user's refresh
// credential. Used on register/login where the old credential is
// invalidated by design.
func (s *Storage) SetRefreshCredential(ctx context.Context, userID, digest string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET refresh_secret_hash = ?, refresh_expires_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, digest, expiresAt, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set refresh credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// RotateRefreshCredential atomically replaces the refresh credential via
// compare-and-swap on the previous digest. Two concurrent rotations with
// the same old digest cannot both succeed: the WHERE clause matches at
// most once, the loser gets ErrCredentialConflict.
func (s *Storage) RotateRefreshCredential(ctx context.Context, userID, oldDigest, newDigest string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET refresh_secret_hash = ?, refresh_expires_at = ?, updated_at = ?
		WHERE id = ? AND refresh_secret_hash = ?
	`

	result, err := s.db.ExecContext(ctx, query, newDigest, expiresAt, time.Now(), userID, oldDigest)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrCredentialConflict
	}

	return nil
}

// ClearRefreshCredential removes the user's refresh credential (logout).
// Idempotent: clearing an already-empty credential is a no-op.
func (s *Storage) ClearRefreshCredential(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET refresh_secret_hash = '', refresh_expires_at = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := s.db.ExecContext(ctx, query, time.Time{}, time.Now(), userID); err != nil {
		return fmt.Errorf("failed to clear refresh credential: %w", err)
	}

	return nil
}
