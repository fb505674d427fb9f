package sessionctl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maybewheel/maybewheel/internal/client/api"
	"github.com/maybewheel/maybewheel/internal/client/tokenstore"
	"github.com/maybewheel/maybewheel/internal/logging"
)

// fakeServer is a minimal in-memory auth backend. Tokens are issued
// sequentially; any token in the live set authenticates.
type fakeServer struct {
	mu      sync.Mutex
	live    map[string]bool
	nextTok int
	calls   map[string]int
	user    api.User

	srv *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{
		live:  make(map[string]bool),
		calls: make(map[string]int),
		user:  api.User{ID: 1, Email: "alice@example.com", Name: "Alice"},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) issue() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTok++
	token := fmt.Sprintf("tok-%d", f.nextTok)
	f.live[token] = true
	return token
}

func (f *fakeServer) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeServer) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, token)
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.mu.Unlock()

	respondErr := func(status int, code, msg string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
	}

	token := ""
	if auth := r.Header.Get("Authorization"); len(auth) > 7 {
		token = auth[7:]
	}

	switch r.URL.Path {
	case "/auth/register":
		var creds api.RegisterCredentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email == "taken@example.com" {
			respondErr(http.StatusConflict, "DUPLICATE_EMAIL", "Email already registered")
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(api.User{ID: 2, Email: creds.Email, Name: creds.Name})

	case "/auth/login":
		var creds api.LoginCredentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "password123" {
			respondErr(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
			return
		}
		json.NewEncoder(w).Encode(api.LoginResponse{User: &f.user, SessionToken: f.issue()})

	case "/auth/me":
		f.mu.Lock()
		ok := f.live[token]
		f.mu.Unlock()
		if !ok {
			respondErr(http.StatusUnauthorized, "INVALID_SESSION", "Invalid or expired session token")
			return
		}
		json.NewEncoder(w).Encode(f.user)

	case "/auth/refresh":
		f.mu.Lock()
		ok := f.live[token]
		f.mu.Unlock()
		if !ok {
			respondErr(http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or already expired")
			return
		}
		f.revoke(token)
		json.NewEncoder(w).Encode(api.RefreshResponse{
			SessionToken: f.issue(),
			ExpiresAt:    time.Now().Add(24 * time.Hour),
			User:         &f.user,
		})

	case "/auth/logout":
		f.mu.Lock()
		ok := f.live[token]
		f.mu.Unlock()
		if !ok {
			respondErr(http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or already expired")
			return
		}
		f.revoke(token)
		json.NewEncoder(w).Encode(api.LogoutResponse{Message: "ok", SessionID: 1})

	default:
		respondErr(http.StatusNotFound, "", "not found")
	}
}

func newTestController(t *testing.T, f *fakeServer, tokens tokenstore.Store, opts ...Option) *Controller {
	t.Helper()
	client := api.NewClient(f.srv.URL, nil)
	ctrl := NewController(client, tokens, logging.NewLogger(true), opts...)
	t.Cleanup(ctrl.Close)
	return ctrl
}

func TestStartWithoutTokenIsUnauthenticated(t *testing.T) {
	f := newFakeServer(t)
	ctrl := newTestController(t, f, tokenstore.NewMemoryStore())

	assert.Equal(t, StatusLoading, ctrl.State().Status)

	ctrl.Start(context.Background())

	assert.Equal(t, StatusUnauthenticated, ctrl.State().Status)
	assert.Zero(t, f.callCount("/auth/me"))
}

func TestStartWithLiveTokenRestoresSession(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	require.NoError(t, tokens.Save(f.issue()))

	ctrl := newTestController(t, f, tokens)
	ctrl.Start(context.Background())

	state := ctrl.State()
	assert.Equal(t, StatusAuthenticated, state.Status)
	require.NotNil(t, state.User)
	assert.Equal(t, "alice@example.com", state.User.Email)
}

func TestStartWithDeadTokenClearsIt(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	require.NoError(t, tokens.Save("tok-revoked"))

	ctrl := newTestController(t, f, tokens)
	ctrl.Start(context.Background())

	assert.Equal(t, StatusUnauthenticated, ctrl.State().Status)
	_, ok := tokens.Load()
	assert.False(t, ok)
}

func TestLoginTransitionsAndPersistsToken(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	ctrl := newTestController(t, f, tokens)
	ctrl.Start(context.Background())

	var states []Status
	ctrl.Subscribe(func(s State) { states = append(states, s.Status) })

	err := ctrl.Login(context.Background(), api.LoginCredentials{
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusAuthenticated, ctrl.State().Status)
	token, ok := tokens.Load()
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	assert.Contains(t, states, StatusAuthenticated)
}

func TestLoginFailureCarriesError(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	ctrl := newTestController(t, f, tokens)
	ctrl.Start(context.Background())

	err := ctrl.Login(context.Background(), api.LoginCredentials{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	require.Error(t, err)

	state := ctrl.State()
	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Equal(t, err, state.Err)

	_, ok := tokens.Load()
	assert.False(t, ok)
}

func TestRegisterChainsIntoLogin(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	ctrl := newTestController(t, f, tokens)
	ctrl.Start(context.Background())

	err := ctrl.Register(context.Background(), api.RegisterCredentials{
		Email:    "alice@example.com",
		Password: "password123",
		Name:     "Alice",
	})
	require.NoError(t, err)

	// Registration auto-logs-in: authenticated state, persisted token.
	state := ctrl.State()
	assert.Equal(t, StatusAuthenticated, state.Status)
	require.NotNil(t, state.User)
	token, ok := tokens.Load()
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, f.callCount("/auth/register"))
	assert.Equal(t, 1, f.callCount("/auth/login"))
}

func TestRegisterChainArmsTimers(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	ctrl := newTestController(t, f, tokens,
		WithRefreshInterval(30*time.Millisecond),
		WithCheckInterval(time.Hour))
	ctrl.Start(context.Background())

	require.NoError(t, ctrl.Register(context.Background(), api.RegisterCredentials{
		Email:    "alice@example.com",
		Password: "password123",
		Name:     "Alice",
	}))
	original, _ := tokens.Load()

	// The chained login armed the refresh timer.
	assert.Eventually(t, func() bool {
		current, ok := tokens.Load()
		return ok && current != original
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegisterFailureSurfacesError(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	ctrl := newTestController(t, f, tokens)
	ctrl.Start(context.Background())

	t.Run("registration rejected", func(t *testing.T) {
		err := ctrl.Register(context.Background(), api.RegisterCredentials{
			Email:    "taken@example.com",
			Password: "password123",
			Name:     "Alice",
		})
		require.Error(t, err)

		state := ctrl.State()
		assert.Equal(t, StatusUnauthenticated, state.Status)
		assert.Equal(t, err, state.Err)
		_, ok := tokens.Load()
		assert.False(t, ok)
	})

	t.Run("chained login rejected", func(t *testing.T) {
		// Registration passes but the fake backend refuses the password
		// at login, so the chain fails at its second step.
		err := ctrl.Register(context.Background(), api.RegisterCredentials{
			Email:    "bob@example.com",
			Password: "wrong",
			Name:     "Bob",
		})
		require.Error(t, err)

		state := ctrl.State()
		assert.Equal(t, StatusUnauthenticated, state.Status)
		assert.Equal(t, err, state.Err)
		_, ok := tokens.Load()
		assert.False(t, ok)
	})
}

func TestLogoutIsSynchronousLocallyAndEventualRemotely(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	ctrl := newTestController(t, f, tokens)
	ctrl.Start(context.Background())

	require.NoError(t, ctrl.Login(context.Background(), api.LoginCredentials{
		Email:    "alice@example.com",
		Password: "password123",
	}))

	ctrl.Logout()

	// Local state flips before the server hears about it.
	assert.Equal(t, StatusUnauthenticated, ctrl.State().Status)
	_, ok := tokens.Load()
	assert.False(t, ok)

	assert.Eventually(t, func() bool {
		return f.callCount("/auth/logout") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLogoutWithoutSessionIsNoOp(t *testing.T) {
	f := newFakeServer(t)
	ctrl := newTestController(t, f, tokenstore.NewMemoryStore())
	ctrl.Start(context.Background())

	ctrl.Logout()
	ctrl.Logout()

	assert.Equal(t, StatusUnauthenticated, ctrl.State().Status)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.callCount("/auth/logout"))
}

func TestRefreshTimerRotatesToken(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	ctrl := newTestController(t, f, tokens,
		WithRefreshInterval(30*time.Millisecond),
		WithCheckInterval(time.Hour))
	ctrl.Start(context.Background())

	require.NoError(t, ctrl.Login(context.Background(), api.LoginCredentials{
		Email:    "alice@example.com",
		Password: "password123",
	}))
	original, _ := tokens.Load()

	assert.Eventually(t, func() bool {
		current, ok := tokens.Load()
		return ok && current != original
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, StatusAuthenticated, ctrl.State().Status)
	assert.Positive(t, f.callCount("/auth/refresh"))
}

func TestLivenessCheckLogsOutOnRevokedSession(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	ctrl := newTestController(t, f, tokens,
		WithRefreshInterval(time.Hour),
		WithCheckInterval(20*time.Millisecond))
	ctrl.Start(context.Background())

	require.NoError(t, ctrl.Login(context.Background(), api.LoginCredentials{
		Email:    "alice@example.com",
		Password: "password123",
	}))
	token, _ := tokens.Load()

	// Revoked server-side, as if another device logged out.
	f.revoke(token)

	assert.Eventually(t, func() bool {
		return ctrl.State().Status == StatusUnauthenticated
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := tokens.Load()
	assert.False(t, ok)
}

func TestExternalTokenClearStopsTimers(t *testing.T) {
	f := newFakeServer(t)
	tokens := tokenstore.NewMemoryStore()
	ctrl := newTestController(t, f, tokens,
		WithRefreshInterval(100*time.Millisecond),
		WithCheckInterval(100*time.Millisecond))
	ctrl.Start(context.Background())

	require.NoError(t, ctrl.Login(context.Background(), api.LoginCredentials{
		Email:    "alice@example.com",
		Password: "password123",
	}))

	// Another holder of the store clears the token before either timer
	// has had a chance to fire.
	require.NoError(t, tokens.Clear())

	assert.Equal(t, StatusUnauthenticated, ctrl.State().Status)

	// No timer-driven traffic after the clear was observed.
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, f.callCount("/auth/refresh"))
	assert.Zero(t, f.callCount("/auth/me"))
	assert.Zero(t, f.callCount("/auth/logout"))
}

// slowSaveStore runs a hook before persisting, standing in for a store
// whose writes take long enough for other transitions to land first.
type slowSaveStore struct {
	tokenstore.Store
	beforeSave func()
}

func (s *slowSaveStore) Save(token string) error {
	if s.beforeSave != nil {
		s.beforeSave()
	}
	return s.Store.Save(token)
}

func TestRefreshDiscardsRotatedTokenWhenLogoutWins(t *testing.T) {
	f := newFakeServer(t)
	base := tokenstore.NewMemoryStore()
	store := &slowSaveStore{Store: base}
	ctrl := newTestController(t, f, store,
		WithRefreshInterval(time.Hour),
		WithCheckInterval(time.Hour))
	ctrl.Start(context.Background())

	require.NoError(t, ctrl.Login(context.Background(), api.LoginCredentials{
		Email:    "alice@example.com",
		Password: "password123",
	}))

	ctrl.mu.Lock()
	epoch := ctrl.epoch
	ctrl.mu.Unlock()

	// Logout completes while the rotated token is still being persisted.
	store.beforeSave = func() {
		store.beforeSave = nil
		ctrl.Logout()
	}
	ctrl.refresh(epoch)

	assert.Equal(t, StatusUnauthenticated, ctrl.State().Status)
	_, ok := base.Load()
	assert.False(t, ok, "rotated token must not survive the logout")
}

func TestSubscribersObserveTransitions(t *testing.T) {
	f := newFakeServer(t)
	ctrl := newTestController(t, f, tokenstore.NewMemoryStore())

	var mu sync.Mutex
	var states []Status
	cancel := ctrl.Subscribe(func(s State) {
		mu.Lock()
		states = append(states, s.Status)
		mu.Unlock()
	})

	ctrl.Start(context.Background())
	require.NoError(t, ctrl.Login(context.Background(), api.LoginCredentials{
		Email:    "alice@example.com",
		Password: "password123",
	}))
	ctrl.Logout()

	mu.Lock()
	got := append([]Status(nil), states...)
	mu.Unlock()
	assert.Equal(t, []Status{
		StatusUnauthenticated, // start with no token
		StatusLoading,         // login in flight
		StatusAuthenticated,   // login succeeded
		StatusUnauthenticated, // logout
	}, got)

	cancel()
	require.NoError(t, ctrl.Login(context.Background(), api.LoginCredentials{
		Email:    "alice@example.com",
		Password: "password123",
	}))
	mu.Lock()
	assert.Len(t, states, 4)
	mu.Unlock()
}
