// Package session manages the client's authenticated session: keeping
// tokens in memory and on disk, attaching them to requests, and
// refreshing them when the server answers 401.
//
// The refresh path is single-flight: however many requests hit an
// expired token at once, only one refresh call reaches the server.
// Everyone else waits for its outcome.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/andsokolov/taskdeck/internal/client/api"
	"github.com/andsokolov/taskdeck/internal/client/storage"
	pkgapi "github.com/andsokolov/taskdeck/pkg/api"
)

const defaultRefreshTimeout = 30 * time.Second

// APIClient defines the server calls the gateway needs
type APIClient interface {
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.TokenResponse, error)
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, accessToken string) (*pkgapi.UserProfile, error)
}

// refreshResult доставляется каждому ожидающему после завершения refresh
type refreshResult struct {
	accessToken string
	err         error
}

// Gateway владеет текущей сессией и координирует refresh
type Gateway struct {
	logger *slog.Logger
	api    APIClient
	store  storage.AuthStorage

	refreshTimeout time.Duration

	mu         sync.Mutex
	auth       *storage.AuthData
	refreshing bool
	// waiters в порядке регистрации; каналы буферизованы на 1,
	// чтобы доставка не блокировалась на отмененных ожидающих
	waiters []chan refreshResult

	onSessionEnd func()
}

// NewGateway creates a session gateway. The persisted session, if any,
// is not loaded until Resume is called.
func NewGateway(logger *slog.Logger, apiClient APIClient, store storage.AuthStorage) *Gateway {
	return &Gateway{
		logger:         logger,
		api:            apiClient,
		store:          store,
		refreshTimeout: defaultRefreshTimeout,
	}
}

// SetRefreshTimeout bounds the refresh exchange. A refresh that does
// not finish in time follows the failure branch for every waiter.
func (g *Gateway) SetRefreshTimeout(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshTimeout = d
}

// SetSessionEndHandler регистрирует callback, вызываемый один раз,
// когда сессия завершается после неудачного refresh
func (g *Gateway) SetSessionEndHandler(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onSessionEnd = fn
}

// Resume loads the persisted session from storage
func (g *Gateway) Resume(ctx context.Context) error {
	auth, err := g.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	g.mu.Lock()
	g.auth = auth
	g.mu.Unlock()

	return nil
}

// Register creates an account and opens a session
func (g *Gateway) Register(ctx context.Context, username, email, password string) (*storage.AuthData, error) {
	resp, err := g.api.Register(ctx, pkgapi.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	return g.adoptSession(ctx, resp)
}

// Login opens a session with email and password
func (g *Gateway) Login(ctx context.Context, email, password string) (*storage.AuthData, error) {
	resp, err := g.api.Login(ctx, pkgapi.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	return g.adoptSession(ctx, resp)
}

// Logout revokes the session on the server and clears local state.
// Серверная часть best-effort: локальная сессия удаляется в любом случае.
func (g *Gateway) Logout(ctx context.Context) error {
	g.mu.Lock()
	accessToken := ""
	if g.auth != nil {
		accessToken = g.auth.AccessToken
	}
	g.auth = nil
	g.mu.Unlock()

	if accessToken != "" {
		if err := g.api.Logout(ctx, accessToken); err != nil {
			g.logger.Warn("server logout failed, clearing local session anyway", "error", err)
		}
	}

	if err := g.store.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("failed to clear local session: %w", err)
	}

	return nil
}

// Session returns a snapshot of the current session
func (g *Gateway) Session() (*storage.AuthData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.auth == nil {
		return nil, ErrNotAuthenticated
	}
	snapshot := *g.auth
	return &snapshot, nil
}

// Me returns the current user's profile, refreshing the session if needed
func (g *Gateway) Me(ctx context.Context) (*pkgapi.UserProfile, error) {
	var profile *pkgapi.UserProfile
	err := g.Do(ctx, func(ctx context.Context, accessToken string) error {
		p, err := g.api.Me(ctx, accessToken)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Do runs fn with the current access token. If fn fails with 401, the
// session is refreshed and fn is retried exactly once with the new
// token. A second 401 is returned as-is. Without a session fn runs with
// an empty token; protected endpoints then answer 401 and the refresh
// fails for lack of a secret.
func (g *Gateway) Do(ctx context.Context, fn func(ctx context.Context, accessToken string) error) error {
	err := fn(ctx, g.currentAccessToken())
	if err == nil || !errors.Is(err, api.ErrUnauthorized) {
		return err
	}

	newToken, err := g.refresh(ctx)
	if err != nil {
		return err
	}

	return fn(ctx, newToken)
}

func (g *Gateway) currentAccessToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.auth == nil {
		return ""
	}
	return g.auth.AccessToken
}

// refresh обменивает refresh token на новую пару токенов. Если обмен
// уже идет, вызов встает в очередь за его результатом. Лидер тоже
// ждет как обычный waiter, поэтому отмена контекста работает для всех
// одинаково: отмененный вызов выходит из очереди, сам обмен при этом
// продолжается.
func (g *Gateway) refresh(ctx context.Context) (string, error) {
	g.mu.Lock()

	ch := make(chan refreshResult, 1)
	g.waiters = append(g.waiters, ch)

	if !g.refreshing {
		g.refreshing = true
		refreshToken := ""
		if g.auth != nil {
			refreshToken = g.auth.RefreshToken
		}
		go g.runRefresh(refreshToken, g.refreshTimeout)
	}
	g.mu.Unlock()

	select {
	case res := <-ch:
		return res.accessToken, res.err
	case <-ctx.Done():
		g.removeWaiter(ch)
		return "", ctx.Err()
	}
}

// runRefresh is the single in-flight exchange. It runs detached from
// any caller's context so one cancelled caller cannot abort a refresh
// that others are waiting on.
func (g *Gateway) runRefresh(refreshToken string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if refreshToken == "" {
		g.finishRefresh(nil, ErrNotAuthenticated)
		return
	}

	resp, err := g.api.Refresh(ctx, refreshToken)
	if err != nil {
		g.finishRefresh(nil, err)
		return
	}

	auth := authFromResponse(resp)
	if err := g.store.SaveAuth(ctx, auth); err != nil {
		// Новая пара уже выдана, а старая ротирована на сервере.
		// Без персистентности сессию не спасти.
		g.finishRefresh(nil, fmt.Errorf("failed to persist session: %w", err))
		return
	}

	g.finishRefresh(auth, nil)
}

// finishRefresh публикует результат обмена: обновляет состояние под
// мьютексом, затем доставляет результат ожидающим в порядке регистрации
func (g *Gateway) finishRefresh(auth *storage.AuthData, err error) {
	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.refreshing = false

	var onSessionEnd func()
	if err != nil {
		g.auth = nil
		onSessionEnd = g.onSessionEnd
	} else {
		g.auth = auth
	}
	g.mu.Unlock()

	res := refreshResult{}
	if err != nil {
		// Единый ответ всем ожидающим: сессия завершена
		res.err = fmt.Errorf("%w: %v", ErrSessionExpired, err)
		g.logger.Info("session ended, refresh failed", "error", err)

		// Контекст обмена к этому моменту мог истечь (например, если
		// провалом был сам таймаут), чистим на свежем
		if derr := g.store.DeleteAuth(context.Background()); derr != nil {
			g.logger.Warn("failed to clear persisted session", "error", derr)
		}
	} else {
		res.accessToken = auth.AccessToken
	}

	for _, ch := range waiters {
		ch <- res
	}

	if onSessionEnd != nil {
		onSessionEnd()
	}
}

// removeWaiter выводит отмененного ожидающего из очереди
func (g *Gateway) removeWaiter(ch chan refreshResult) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, w := range g.waiters {
		if w == ch {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
			return
		}
	}
}

// adoptSession persists and activates a freshly issued session
func (g *Gateway) adoptSession(ctx context.Context, resp *pkgapi.TokenResponse) (*storage.AuthData, error) {
	auth := authFromResponse(resp)

	if err := g.store.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	g.mu.Lock()
	g.auth = auth
	g.mu.Unlock()

	snapshot := *auth
	return &snapshot, nil
}

func authFromResponse(resp *pkgapi.TokenResponse) *storage.AuthData {
	return &storage.AuthData{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.ExpiresAt,
		User:         resp.User,
	}
}
