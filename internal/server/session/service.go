// Package session implements the server-side session lifecycle:
// register, login, refresh rotation, and revocation. It is the only
// writer of refresh credentials; handlers stay thin on top of it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/andsokolov/taskdeck/internal/models"
	"github.com/andsokolov/taskdeck/internal/server/storage"
	"github.com/andsokolov/taskdeck/internal/token"
	"github.com/andsokolov/taskdeck/internal/validation"
	"github.com/andsokolov/taskdeck/pkg/api"
)

// defaultCategories — колонки доски, которые получает каждый новый
// пользователь. Порядок соответствует позиции на доске.
var defaultCategories = []string{"To Do", "In Progress", "Done"}

// Session является результатом register/login/refresh:
// пара токенов плюс профиль пользователя
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         api.UserProfile
}

// Service orchestrates users, refresh credentials and the token issuer
type Service struct {
	logger     *slog.Logger
	users      storage.UserStorage
	categories storage.CategoryStorage
	issuer     *token.Issuer
}

// NewService creates a new session service
func NewService(logger *slog.Logger, users storage.UserStorage, categories storage.CategoryStorage, issuer *token.Issuer) *Service {
	return &Service{
		logger:     logger,
		users:      users,
		categories: categories,
		issuer:     issuer,
	}
}

// Register создает нового пользователя и выдает первую пару токенов.
// Конфликт по username/email возвращается как ErrUsernameTaken /
// ErrEmailTaken; email сравнивается без учета регистра.
func (s *Service) Register(ctx context.Context, username, email, password string) (*Session, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	email = validation.NormalizeEmail(email)

	// Хешируем пароль
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return nil, s.conflictError(ctx, username, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Засеваем дефолтные категории. Ошибка здесь не фатальна:
	// аккаунт уже создан и им можно пользоваться
	if err := s.seedDefaultCategories(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to seed default categories",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID), slog.String("username", username))

	return s.issueSession(ctx, user)
}

// Login аутентифицирует пользователя по email и паролю.
// Неизвестный email и неверный пароль неразличимы для клиента.
// При успехе refresh credential перезаписывается: старый становится
// недействительным сразу.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = validation.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return s.issueSession(ctx, user)
}

// Refresh обменивает refresh token на новую пару токенов.
// Ротация атомарна: conditional update по старому digest, из N
// конкурентных запросов с одним и тем же token выигрывает ровно один.
// Старый token после успешной ротации мертв навсегда.
func (s *Service) Refresh(ctx context.Context, refreshSecret string) (*Session, error) {
	if strings.TrimSpace(refreshSecret) == "" {
		return nil, ErrInvalidRefreshToken
	}

	oldDigest := token.Digest(refreshSecret)

	user, err := s.users.GetUserByRefreshDigest(ctx, oldDigest)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	// Граница включительно: expiry == now уже недействителен
	if !user.RefreshExpiresAt.After(time.Now()) {
		return nil, ErrInvalidRefreshToken
	}

	newSecret, err := s.issuer.IssueRefreshSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh secret: %w", err)
	}

	if err := s.users.RotateRefreshCredential(ctx, user.ID, oldDigest, token.Digest(newSecret), s.issuer.RefreshExpiry()); err != nil {
		if errors.Is(err, storage.ErrCredentialConflict) {
			// Конкурентный refresh успел раньше — предъявленный token
			// уже использован
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to rotate refresh credential: %w", err)
	}

	accessToken, expiresAt, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", user.ID))

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: newSecret,
		ExpiresAt:    expiresAt,
		User:         profileOf(user),
	}, nil
}

// Revoke очищает refresh credential пользователя (logout).
// Идемпотентна: повторный вызов не ошибка.
func (s *Service) Revoke(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshCredential(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear refresh credential: %w", err)
	}

	s.logger.InfoContext(ctx, "refresh credential revoked", slog.String("user_id", userID))
	return nil
}

// GetProfile возвращает профиль пользователя по ID
func (s *Service) GetProfile(ctx context.Context, userID string) (*api.UserProfile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	profile := profileOf(user)
	return &profile, nil
}

// issueSession выдает свежую пару токенов и перезаписывает stored
// refresh credential пользователя
func (s *Service) issueSession(ctx context.Context, user *models.User) (*Session, error) {
	refreshSecret, err := s.issuer.IssueRefreshSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh secret: %w", err)
	}

	if err := s.users.SetRefreshCredential(ctx, user.ID, token.Digest(refreshSecret), s.issuer.RefreshExpiry()); err != nil {
		return nil, fmt.Errorf("failed to store refresh credential: %w", err)
	}

	accessToken, expiresAt, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshSecret,
		ExpiresAt:    expiresAt,
		User:         profileOf(user),
	}, nil
}

// conflictError уточняет, что именно занято: username или email
func (s *Service) conflictError(ctx context.Context, username, email string) error {
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

// seedDefaultCategories создает стартовые колонки доски для нового
// пользователя
func (s *Service) seedDefaultCategories(ctx context.Context, userID string) error {
	now := time.Now()
	categories := make([]*models.Category, 0, len(defaultCategories))
	for i, name := range defaultCategories {
		categories = append(categories, &models.Category{
			ID:        ksuid.New().String(),
			UserID:    userID,
			Name:      name,
			Position:  i,
			CreatedAt: now,
		})
	}

	return s.categories.CreateCategories(ctx, categories)
}

// profileOf строит публичный профиль из модели пользователя
func profileOf(user *models.User) api.UserProfile {
	return api.UserProfile{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
