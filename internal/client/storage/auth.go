// Package storage defines the client-side persistence contracts.
package storage

import (
	"context"
	"time"

	"github.com/andsokolov/taskdeck/pkg/api"
)

// AuthData хранит текущую сессию пользователя на диске
type AuthData struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
	User         api.UserProfile `json:"user"`
}

// AuthStorage персистентное хранилище сессии
type AuthStorage interface {
	// SaveAuth атомарно заменяет сохраненную сессию
	SaveAuth(ctx context.Context, auth *AuthData) error
	// GetAuth возвращает ErrAuthNotFound, если сессии нет
	GetAuth(ctx context.Context) (*AuthData, error)
	// DeleteAuth идемпотентно удаляет сессию
	DeleteAuth(ctx context.Context) error
	// IsAuthenticated проверяет наличие действующей сессии
	IsAuthenticated(ctx context.Context) (bool, error)
}
