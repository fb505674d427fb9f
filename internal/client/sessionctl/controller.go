// Package sessionctl keeps a client-side session alive. It owns the
// refresh timer and the liveness check for one session, mirrors the
// server's view of the user into an observable state, and tears both
// timers down exactly once on logout.
package sessionctl

import (
	"context"
	"sync"
	"time"

	"github.com/maybewheel/maybewheel/internal/client/api"
	"github.com/maybewheel/maybewheel/internal/client/tokenstore"
	"github.com/maybewheel/maybewheel/internal/logging"
)

// Status is the controller's position in the session lifecycle.
type Status string

const (
	// StatusLoading covers the initial bootstrap before the first
	// token check resolves.
	StatusLoading Status = "loading"

	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

const (
	// DefaultRefreshInterval rotates the token an hour before its
	// 24h server-side expiry.
	DefaultRefreshInterval = 23 * time.Hour

	// DefaultCheckInterval is how often the liveness check asks the
	// server whether the session is still valid.
	DefaultCheckInterval = 60 * time.Second
)

// State is a snapshot of the controller, delivered to subscribers on
// every transition.
type State struct {
	Status Status
	User   *api.User
	Err    error
}

// Controller drives the client session lifecycle against one server.
// All transitions are serialized; subscribers observe them in order.
type Controller struct {
	client *api.Client
	tokens tokenstore.Store
	logger *logging.Logger

	refreshInterval time.Duration
	checkInterval   time.Duration

	mu    sync.Mutex
	state State
	// epoch invalidates timers scheduled before the latest teardown.
	// A timer whose captured epoch no longer matches does nothing.
	epoch        uint64
	refreshTimer *time.Timer
	checkDone    chan struct{}
	closed       bool

	subMu      sync.Mutex
	subs       map[int]func(State)
	nextSub    int
	storeUnsub func()
}

// Option adjusts a Controller at construction time.
type Option func(*Controller)

// WithRefreshInterval overrides the token rotation cadence.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Controller) { c.refreshInterval = d }
}

// WithCheckInterval overrides the liveness check cadence.
func WithCheckInterval(d time.Duration) Option {
	return func(c *Controller) { c.checkInterval = d }
}

// NewController wires a controller to an API client and a token store.
// Call Start to bootstrap and Close when done.
func NewController(client *api.Client, tokens tokenstore.Store, logger *logging.Logger, opts ...Option) *Controller {
	c := &Controller{
		client:          client,
		tokens:          tokens,
		logger:          logger,
		refreshInterval: DefaultRefreshInterval,
		checkInterval:   DefaultCheckInterval,
		state:           State{Status: StatusLoading},
		subs:            make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn to run after every state transition. The
// returned cancel removes it. fn is called without internal locks held
// and must not block for long.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start bootstraps the controller: if the store holds a token it is
// validated against the server, otherwise the controller settles into
// the unauthenticated state. Start also begins watching the store so a
// token cleared elsewhere logs this controller out.
func (c *Controller) Start(ctx context.Context) {
	c.storeUnsub = c.tokens.Subscribe(c.onStoreChange)

	token, ok := c.tokens.Load()
	if !ok {
		c.setState(State{Status: StatusUnauthenticated})
		return
	}

	user, err := c.client.Me(ctx, token)
	if err != nil {
		// A token that cannot be validated at startup is discarded
		// rather than trusted.
		c.logger.Warn("session bootstrap check failed", "error", err)
		c.clearToken()
		c.setState(State{Status: StatusUnauthenticated})
		return
	}

	c.startTimers()
	c.setState(State{Status: StatusAuthenticated, User: user})
}

// Login authenticates with the server and, on success, persists the
// token and arms the refresh and liveness timers. On failure the store
// is cleared and the resulting state carries the error.
func (c *Controller) Login(ctx context.Context, creds api.LoginCredentials) error {
	c.setState(State{Status: StatusLoading})

	resp, err := c.client.Login(ctx, creds)
	if err != nil {
		c.clearToken()
		c.teardownTimers()
		c.setState(State{Status: StatusUnauthenticated, Err: err})
		return err
	}

	if err := c.tokens.Save(resp.SessionToken); err != nil {
		c.logger.Error("failed to persist session token", "error", err)
		c.setState(State{Status: StatusUnauthenticated, Err: err})
		return err
	}

	c.startTimers()
	c.setState(State{Status: StatusAuthenticated, User: resp.User})
	return nil
}

// Register creates an account and immediately logs in with the same
// credentials.
func (c *Controller) Register(ctx context.Context, creds api.RegisterCredentials) error {
	c.setState(State{Status: StatusLoading})

	if _, err := c.client.Register(ctx, creds); err != nil {
		c.setState(State{Status: StatusUnauthenticated, Err: err})
		return err
	}
	return c.Login(ctx, api.LoginCredentials{Email: creds.Email, Password: creds.Password})
}

// Logout tears down both timers and clears local state synchronously,
// then notifies the server in the background. A logout with no stored
// token is a no-op beyond the state transition.
func (c *Controller) Logout() {
	token, had := c.tokens.Load()

	c.teardownTimers()
	c.setState(State{Status: StatusUnauthenticated})
	c.clearToken()

	if !had {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := c.client.Logout(ctx, token); err != nil {
			c.logger.Warn("server-side logout failed", "error", err)
		}
	}()
}

// Close stops the timers and the store watch. The controller must not
// be used afterwards.
func (c *Controller) Close() {
	c.teardownTimers()
	if c.storeUnsub != nil {
		c.storeUnsub()
		c.storeUnsub = nil
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// onStoreChange runs when the token store reports a change. A token
// cleared by another holder of the store means this session ended
// elsewhere; the controller follows without calling the server again.
func (c *Controller) onStoreChange() {
	if _, ok := c.tokens.Load(); ok {
		return
	}

	c.mu.Lock()
	authenticated := c.state.Status == StatusAuthenticated
	c.mu.Unlock()
	if !authenticated {
		return
	}

	c.teardownTimers()
	c.setState(State{Status: StatusUnauthenticated})
}

// startTimers arms the refresh timer and the liveness check goroutine,
// replacing any previous generation.
func (c *Controller) startTimers() {
	c.teardownTimers()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.epoch++
	epoch := c.epoch

	c.refreshTimer = time.AfterFunc(c.refreshInterval, func() {
		c.refresh(epoch)
	})

	done := make(chan struct{})
	c.checkDone = done
	c.mu.Unlock()

	go c.checkLoop(epoch, done)
}

// teardownTimers stops the current timer generation. Safe to call
// repeatedly; a generation is torn down at most once.
func (c *Controller) teardownTimers() {
	c.mu.Lock()
	c.epoch++
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	if c.checkDone != nil {
		close(c.checkDone)
		c.checkDone = nil
	}
	c.mu.Unlock()
}

// refresh rotates the session token. Scheduled by time.AfterFunc; the
// epoch guard drops executions that raced a teardown.
func (c *Controller) refresh(epoch uint64) {
	if c.staleEpoch(epoch) {
		return
	}

	token, ok := c.tokens.Load()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := c.client.Refresh(ctx, token)
	if err != nil {
		// Any refresh failure ends the session: a token that could not
		// be rotated will expire soon regardless.
		c.logger.Warn("session refresh failed, logging out", "error", err)
		c.Logout()
		return
	}

	if c.staleEpoch(epoch) {
		return
	}
	if err := c.tokens.Save(resp.SessionToken); err != nil {
		c.logger.Error("failed to persist rotated token", "error", err)
		c.Logout()
		return
	}
	// A logout that landed while the rotated token was being persisted
	// must not leave it behind in the store.
	if c.staleEpoch(epoch) {
		c.clearToken()
		return
	}

	c.setUser(resp.User)
	c.rearmRefresh(epoch, c.refreshInterval)
}

// rearmRefresh schedules the next refresh within the same generation.
func (c *Controller) rearmRefresh(epoch uint64, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.refreshTimer = time.AfterFunc(d, func() {
		c.refresh(epoch)
	})
}

// checkLoop periodically verifies the session is still live. A missing
// token or a rejected session logs the controller out; other failures
// are tolerated until the next tick.
func (c *Controller) checkLoop(epoch uint64, done chan struct{}) {
	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		if c.staleEpoch(epoch) {
			return
		}

		token, ok := c.tokens.Load()
		if !ok {
			c.teardownTimers()
			c.setState(State{Status: StatusUnauthenticated})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		user, err := c.client.Me(ctx, token)
		cancel()

		if err != nil {
			if api.IsSessionInvalid(err) {
				c.Logout()
				return
			}
			c.logger.Warn("session liveness check failed", "error", err)
			continue
		}

		if c.staleEpoch(epoch) {
			return
		}
		c.setUser(user)
	}
}

func (c *Controller) staleEpoch(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch != epoch
}

// clearToken clears the store without holding the controller mutex, as
// the store notifies its observers synchronously.
func (c *Controller) clearToken() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("failed to clear session token", "error", err)
	}
}

func (c *Controller) setUser(user *api.User) {
	c.mu.Lock()
	if c.state.Status != StatusAuthenticated && c.state.Status != StatusLoading {
		c.mu.Unlock()
		return
	}
	c.state = State{Status: StatusAuthenticated, User: user}
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notify(s)
}

func (c *Controller) notify(s State) {
	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
