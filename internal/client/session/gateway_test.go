package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andsokolov/taskdeck/internal/client/api"
	"github.com/andsokolov/taskdeck/internal/client/storage"
	pkgapi "github.com/andsokolov/taskdeck/pkg/api"
)

// mockAPIClient is a mock implementation of APIClient for testing
type mockAPIClient struct {
	registerFn func(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.TokenResponse, error)
	loginFn    func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)
	logoutFn   func(ctx context.Context, accessToken string) error
	meFn       func(ctx context.Context, accessToken string) (*pkgapi.UserProfile, error)
}

func (m *mockAPIClient) Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.TokenResponse, error) {
	return m.registerFn(ctx, req)
}

func (m *mockAPIClient) Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
	return m.loginFn(ctx, req)
}

func (m *mockAPIClient) Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
	return m.refreshFn(ctx, refreshToken)
}

func (m *mockAPIClient) Logout(ctx context.Context, accessToken string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, accessToken)
	}
	return nil
}

func (m *mockAPIClient) Me(ctx context.Context, accessToken string) (*pkgapi.UserProfile, error) {
	return m.meFn(ctx, accessToken)
}

// mockAuthStorage is an in-memory mock of storage.AuthStorage
type mockAuthStorage struct {
	mu   sync.Mutex
	auth *storage.AuthData

	saveErr     error
	deleteCalls int
}

func (m *mockAuthStorage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	snapshot := *auth
	m.auth = &snapshot
	return nil
}

func (m *mockAuthStorage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auth == nil {
		return nil, storage.ErrAuthNotFound
	}
	snapshot := *m.auth
	return &snapshot, nil
}

func (m *mockAuthStorage) DeleteAuth(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	m.auth = nil
	return nil
}

func (m *mockAuthStorage) IsAuthenticated(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auth != nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tokenResponse(access, refresh string) *pkgapi.TokenResponse {
	return &pkgapi.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(15 * time.Minute),
		User: pkgapi.UserProfile{
			ID:       "user-1",
			Username: "alice",
			Email:    "alice@example.com",
		},
	}
}

func unauthorizedErr() error {
	return &api.APIError{StatusCode: http.StatusUnauthorized, Message: "token expired"}
}

// gateway with an active session backed by the given mocks
func activeGateway(t *testing.T, client *mockAPIClient, store *mockAuthStorage) *Gateway {
	t.Helper()

	g := NewGateway(testLogger(), client, store)
	auth := &storage.AuthData{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.SaveAuth(context.Background(), auth))
	require.NoError(t, g.Resume(context.Background()))
	return g
}

// Без сессии запрос уходит с пустым токеном; публичный endpoint
// отвечает как обычно
func TestGateway_Do_NoSessionEmptyToken(t *testing.T) {
	g := NewGateway(testLogger(), &mockAPIClient{}, &mockAuthStorage{})

	var seenToken string
	err := g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		seenToken = accessToken
		return nil
	})

	require.NoError(t, err)
	assert.Empty(t, seenToken)
}

// Без сессии 401 от защищенного endpoint'а нечем лечить: refresh
// секрета нет, к серверу он не ходит
func TestGateway_Do_NoSession401(t *testing.T) {
	var refreshCalls atomic.Int32
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			refreshCalls.Add(1)
			return tokenResponse("new-access", "new-refresh"), nil
		},
	}
	g := NewGateway(testLogger(), client, &mockAuthStorage{})

	err := g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		return unauthorizedErr()
	})

	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestGateway_Do_NoRefreshNeeded(t *testing.T) {
	var refreshCalls atomic.Int32
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			refreshCalls.Add(1)
			return tokenResponse("new-access", "new-refresh"), nil
		},
	}
	g := activeGateway(t, client, &mockAuthStorage{})

	err := g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		assert.Equal(t, "old-access", accessToken)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(0), refreshCalls.Load())
}

// Десять конкурентных запросов напарываются на протухший access token;
// к серверу должен уйти ровно один refresh, и все десять завершиться
// успешно с новым токеном.
func TestGateway_Do_SingleFlightRefresh(t *testing.T) {
	const concurrency = 10

	var refreshCalls atomic.Int32
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			refreshCalls.Add(1)
			assert.Equal(t, "old-refresh", refreshToken)
			// Держим обмен открытым, пока остальные встают в очередь
			time.Sleep(100 * time.Millisecond)
			return tokenResponse("new-access", "new-refresh"), nil
		},
	}
	store := &mockAuthStorage{}
	g := activeGateway(t, client, store)

	start := make(chan struct{})
	errs := make([]error, concurrency)
	tokens := make([]string, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
				if accessToken == "old-access" {
					return unauthorizedErr()
				}
				tokens[i] = accessToken
				return nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load(), "exactly one refresh call must reach the server")
	for i := 0; i < concurrency; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new-access", tokens[i])
	}

	// Новая пара персистентна
	saved, err := store.GetAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", saved.RefreshToken)
}

// Refresh отклонен сервером: все ожидающие получают одну и ту же
// ErrSessionExpired, сессия стерта, callback сработал один раз.
func TestGateway_Do_RefreshFailureEndsSession(t *testing.T) {
	const concurrency = 8

	var refreshCalls atomic.Int32
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			refreshCalls.Add(1)
			time.Sleep(100 * time.Millisecond)
			return nil, unauthorizedErr()
		},
	}
	store := &mockAuthStorage{}
	g := activeGateway(t, client, store)

	var sessionEnds atomic.Int32
	g.SetSessionEndHandler(func() {
		sessionEnds.Add(1)
	})

	start := make(chan struct{})
	errs := make([]error, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
				return unauthorizedErr()
			})
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load())
	for i := 0; i < concurrency; i++ {
		assert.ErrorIs(t, errs[i], ErrSessionExpired)
	}

	assert.Equal(t, int32(1), sessionEnds.Load(), "session end handler must fire exactly once")

	_, err := g.Session()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = store.GetAuth(context.Background())
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

// Ожидающий с отмененным контекстом выходит из очереди сразу, не
// дожидаясь исхода обмена; сам обмен при этом доводится до конца.
func TestGateway_Do_WaiterCancellation(t *testing.T) {
	release := make(chan struct{})
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			<-release
			return tokenResponse("new-access", "new-refresh"), nil
		},
	}
	g := activeGateway(t, client, &mockAuthStorage{})

	leaderDone := make(chan error, 1)
	go func() {
		leaderDone <- g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
			if accessToken == "old-access" {
				return unauthorizedErr()
			}
			return nil
		})
	}()

	// Ждем, пока лидер займет flight
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.refreshing
	}, time.Second, 5*time.Millisecond)

	waiterCtx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		waiterDone <- g.Do(waiterCtx, func(ctx context.Context, accessToken string) error {
			if accessToken == "old-access" {
				return unauthorizedErr()
			}
			return nil
		})
	}()

	// Даем waiter'у встать в очередь, затем отменяем его
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.waiters) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-waiterDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return promptly")
	}

	// Лидер дожидается результата как ни в чем не бывало
	close(release)
	select {
	case err := <-leaderDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("leader did not complete after refresh finished")
	}
}

// Do повторяет запрос ровно один раз: второй 401 возвращается как есть
func TestGateway_Do_RetriesOnce(t *testing.T) {
	var refreshCalls atomic.Int32
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			refreshCalls.Add(1)
			return tokenResponse("new-access", "new-refresh"), nil
		},
	}
	g := activeGateway(t, client, &mockAuthStorage{})

	var fnCalls atomic.Int32
	err := g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		fnCalls.Add(1)
		return unauthorizedErr()
	})

	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, int32(2), fnCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
}

func TestGateway_Do_NonAuthErrorPassedThrough(t *testing.T) {
	var refreshCalls atomic.Int32
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			refreshCalls.Add(1)
			return tokenResponse("new-access", "new-refresh"), nil
		},
	}
	g := activeGateway(t, client, &mockAuthStorage{})

	wantErr := errors.New("connection reset")
	err := g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, int32(0), refreshCalls.Load(), "non-401 errors must not trigger refresh")
}

func TestGateway_Resume(t *testing.T) {
	store := &mockAuthStorage{}
	g := NewGateway(testLogger(), &mockAPIClient{}, store)

	// Нет сохраненной сессии
	assert.ErrorIs(t, g.Resume(context.Background()), ErrNotAuthenticated)

	require.NoError(t, store.SaveAuth(context.Background(), &storage.AuthData{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))

	require.NoError(t, g.Resume(context.Background()))

	auth, err := g.Session()
	require.NoError(t, err)
	assert.Equal(t, "stored-access", auth.AccessToken)
}

func TestGateway_LoginAndLogout(t *testing.T) {
	var logoutToken string
	client := &mockAPIClient{
		loginFn: func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			assert.Equal(t, "alice@example.com", req.Email)
			return tokenResponse("access-1", "refresh-1"), nil
		},
		logoutFn: func(ctx context.Context, accessToken string) error {
			logoutToken = accessToken
			return nil
		},
	}
	store := &mockAuthStorage{}
	g := NewGateway(testLogger(), client, store)

	auth, err := g.Login(context.Background(), "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "access-1", auth.AccessToken)

	saved, err := store.GetAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", saved.RefreshToken)

	require.NoError(t, g.Logout(context.Background()))
	assert.Equal(t, "access-1", logoutToken)

	_, err = g.Session()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = store.GetAuth(context.Background())
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestGateway_Logout_ServerErrorStillClearsLocal(t *testing.T) {
	client := &mockAPIClient{
		logoutFn: func(ctx context.Context, accessToken string) error {
			return errors.New("server unreachable")
		},
	}
	store := &mockAuthStorage{}
	g := activeGateway(t, client, store)

	require.NoError(t, g.Logout(context.Background()))

	_, err := store.GetAuth(context.Background())
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestGateway_Me_RefreshesOn401(t *testing.T) {
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			return tokenResponse("new-access", "new-refresh"), nil
		},
		meFn: func(ctx context.Context, accessToken string) (*pkgapi.UserProfile, error) {
			if accessToken == "old-access" {
				return nil, unauthorizedErr()
			}
			return &pkgapi.UserProfile{ID: "user-1", Username: "alice"}, nil
		},
	}
	g := activeGateway(t, client, &mockAuthStorage{})

	profile, err := g.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
}

// Зависший refresh обрывается по таймауту, ожидающие получают отказ
func TestGateway_Refresh_Timeout(t *testing.T) {
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	g := activeGateway(t, client, &mockAuthStorage{})
	g.SetRefreshTimeout(50 * time.Millisecond)

	err := g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		if accessToken == "old-access" {
			return unauthorizedErr()
		}
		return nil
	})

	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestGateway_Refresh_PersistFailureEndsSession(t *testing.T) {
	client := &mockAPIClient{
		refreshFn: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			return tokenResponse("new-access", "new-refresh"), nil
		},
	}
	store := &mockAuthStorage{}
	g := activeGateway(t, client, store)
	store.mu.Lock()
	store.saveErr = errors.New("disk full")
	store.mu.Unlock()

	err := g.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		if accessToken == "old-access" {
			return unauthorizedErr()
		}
		return nil
	})

	assert.ErrorIs(t, err, ErrSessionExpired)
	_, serr := g.Session()
	assert.ErrorIs(t, serr, ErrNotAuthenticated)
}
