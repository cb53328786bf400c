package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/andsokolov/taskdeck/internal/server/session"
	"github.com/andsokolov/taskdeck/pkg/api"
)

// SessionService defines the session operations the HTTP layer depends on
type SessionService interface {
	Register(ctx context.Context, username, email, password string) (*session.Session, error)
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Refresh(ctx context.Context, refreshSecret string) (*session.Session, error)
	Revoke(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*api.UserProfile, error)
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger   *slog.Logger
	sessions SessionService
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, sessions SessionService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		sessions: sessions,
	}
}

// Register обрабатывает POST /api/v1/auth/register
// Регистрация нового пользователя
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUsernameTaken), errors.Is(err, session.ErrEmailTaken):
			h.logger.WarnContext(ctx, "registration conflict", slog.String("username", req.Username))
			h.sendError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, session.ErrValidation):
			h.sendError(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.ErrorContext(ctx, "failed to register user", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("username", req.Username),
		slog.String("user_id", sess.User.ID))

	h.sendJSON(w, tokenResponse(sess), http.StatusCreated)
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация пользователя
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			// Одно сообщение на оба случая: не раскрываем, существует ли email
			h.logger.WarnContext(ctx, "login failed")
			h.sendError(w, session.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to log in user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged in successfully", slog.String("user_id", sess.User.ID))

	h.sendJSON(w, tokenResponse(sess), http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Обмен refresh token на новую пару токенов с ротацией
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode refresh request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			h.logger.WarnContext(ctx, "refresh rejected")
			h.sendError(w, session.ErrInvalidRefreshToken.Error(), http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to refresh tokens", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "tokens refreshed successfully", slog.String("user_id", sess.User.ID))

	h.sendJSON(w, tokenResponse(sess), http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Требует валидный access token; отзывает stored refresh credential
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.sessions.Revoke(ctx, userID); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke refresh credential", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged out successfully", slog.String("user_id", userID))

	w.WriteHeader(http.StatusOK)
}

// Me обрабатывает GET /api/v1/auth/me
// Возвращает профиль текущего пользователя
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	profile, err := h.sessions.GetProfile(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get user profile", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, profile, http.StatusOK)
}

// tokenResponse строит wire-ответ из сессии
func tokenResponse(sess *session.Session) api.TokenResponse {
	return api.TokenResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		User:         sess.User,
	}
}

// sendJSON отправляет JSON ответ
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *AuthHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}
