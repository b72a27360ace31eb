// Package session owns the single process-wide authentication state and
// coordinates credentialed calls with the server-side cookie session.
package session

import (
	"context"
	"sync"

	"github.com/postify/postify-client/internal/api"
)

// Status is the lifecycle state of the session.
type Status int

const (
	// StatusUnknown is the initial state before the cookie probe runs.
	StatusUnknown Status = iota
	// StatusChecking means the who-am-I probe is in flight.
	StatusChecking
	// StatusAuthenticated means the server recognized the session cookie.
	StatusAuthenticated
	// StatusAnonymous means there is no valid session.
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Result is the uniform outcome of every mutating session operation.
// Errors never escape as panics or raw error values past this boundary.
type Result struct {
	Success bool
	Err     string
}

func failure(msg string) Result {
	return Result{Err: msg}
}

// Snapshot is a value copy of the session state.
type Snapshot struct {
	User      *api.User
	Status    Status
	LastError string
}

// Manager tracks the authenticated identity. Exactly one Manager exists
// per running client; it is created by the top-level program and passed
// down explicitly.
type Manager struct {
	client *api.Client

	mu      sync.RWMutex
	status  Status
	user    *api.User
	lastErr string
}

// NewManager creates a session manager in the Unknown state.
func NewManager(client *api.Client) *Manager {
	return &Manager{client: client, status: StatusUnknown}
}

// Init probes the session cookie against GET /auth/user. A successful
// probe authenticates the session; any failure leaves it anonymous.
func (m *Manager) Init(ctx context.Context) {
	m.mu.Lock()
	m.status = StatusChecking
	m.mu.Unlock()

	user, err := m.client.CurrentUser(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.status = StatusAnonymous
		m.user = nil
		return
	}
	m.status = StatusAuthenticated
	m.user = user
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{User: copyUser(m.user), Status: m.status, LastError: m.lastErr}
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// CurrentUser returns a copy of the authenticated user, or nil.
func (m *Manager) CurrentUser() *api.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyUser(m.user)
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status == StatusAuthenticated && m.user != nil
}

// LastError returns the message from the most recent failed operation.
func (m *Manager) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Login authenticates with the given credentials. On failure the session
// state is left untouched and the result carries the server's message
// when one was sent.
func (m *Manager) Login(ctx context.Context, form Form) Result {
	return m.submit(ctx, ModeLogin, form)
}

// Register creates an account and signs in. Validation failures are
// caught before any network request is issued.
func (m *Manager) Register(ctx context.Context, form Form) Result {
	return m.submit(ctx, ModeRegister, form)
}

// submit is the shared validation and submission pipeline for both auth
// modes, dispatched on the explicit mode tag.
func (m *Manager) submit(ctx context.Context, mode Mode, form Form) Result {
	m.setError("")
	if err := form.Validate(mode); err != nil {
		return failure(err.Error())
	}

	var (
		user *api.User
		err  error
	)
	switch mode {
	case ModeLogin:
		user, err = m.client.Login(ctx, api.LoginRequest{
			Username: form.Username,
			Password: form.Password,
		})
	case ModeRegister:
		user, err = m.client.Register(ctx, api.RegisterRequest{
			Username: form.Username,
			Name:     form.Name,
			Email:    form.Email,
			Password: form.Password,
		})
	}
	if err != nil {
		msg := api.ErrorMessage(err, mode.failureMessage())
		m.setError(msg)
		return failure(msg)
	}

	m.mu.Lock()
	m.user = user
	m.status = StatusAuthenticated
	m.mu.Unlock()
	return Result{Success: true}
}

// Logout invalidates the server session. The user is cleared only after
// the server confirms; on failure the session stays authenticated.
func (m *Manager) Logout(ctx context.Context) Result {
	if err := m.client.Logout(ctx); err != nil {
		msg := api.ErrorMessage(err, "Logout failed")
		m.setError(msg)
		return failure(msg)
	}

	m.mu.Lock()
	m.user = nil
	m.status = StatusAnonymous
	m.lastErr = ""
	m.mu.Unlock()
	return Result{Success: true}
}

// RefreshToken extends the server-side session validity. It never
// mutates the user, whatever the outcome.
func (m *Manager) RefreshToken(ctx context.Context) Result {
	if err := m.client.RefreshToken(ctx); err != nil {
		return failure(api.ErrorMessage(err, "Token refresh failed"))
	}
	return Result{Success: true}
}

// UpdateSettings PUTs only the changed fields and replaces the user with
// the server's response.
func (m *Manager) UpdateSettings(ctx context.Context, changes map[string]interface{}) Result {
	if !m.IsAuthenticated() {
		return failure("You must be signed in to update settings")
	}
	if len(changes) == 0 {
		return Result{Success: true}
	}

	user, err := m.client.UpdateUser(ctx, changes)
	if err != nil {
		msg := api.ErrorMessage(err, "Failed to update settings")
		m.setError(msg)
		return failure(msg)
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return Result{Success: true}
}

func (m *Manager) setError(msg string) {
	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()
}

func copyUser(u *api.User) *api.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.FavouritePosts = append([]string(nil), u.FavouritePosts...)
	return &cp
}
