// Package session owns the client-side view of the authentication session:
// a logged-in flag derived from the token store, role/tenant/status
// accessors, and the login/logout transitions.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/scothinks/bioverify/authapi"
	"github.com/scothinks/bioverify/claims"
	"github.com/scothinks/bioverify/tokenstore"
)

// AuthAPI is the slice of the auth endpoint client the manager drives.
type AuthAPI interface {
	Authenticate(ctx context.Context, credentials authapi.Credentials) (*authapi.JWTResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	CreateAccount(ctx context.Context, request authapi.AccountRequest) (*authapi.JWTResponse, error)
	ActivateAccount(ctx context.Context, token, password string) error
	ResendActivation(ctx context.Context, email string) error
}

// Navigator receives route changes. In the browser console this was the
// router; the CLI prints the destination.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Manager derives session state from the token store. Every store mutation
// triggers a synchronous recompute; subscribers see each logged-in
// transition exactly once.
type Manager struct {
	store tokenstore.Store
	api   AuthAPI
	nav   Navigator
	log   zerolog.Logger

	lock       sync.Mutex
	subs       []func(bool)
	lastActive bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithNavigator sets the navigation sink. Without one, transitions are
// logged and dropped.
func WithNavigator(nav Navigator) Option {
	return func(m *Manager) {
		m.nav = nav
	}
}

// WithLogger sets the manager logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

func New(store tokenstore.Store, api AuthAPI, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[session.New] store is required")
	}
	if api == nil {
		return nil, errors.New("[session.New] auth api is required")
	}

	m := &Manager{
		store: store,
		api:   api,
		log:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}

	m.lastActive = m.IsLoggedIn()
	if n, ok := store.(tokenstore.Notifier); ok {
		n.Subscribe(m.recompute)
	}
	return m, nil
}

// IsLoggedIn reports whether a valid, unexpired session is present. An
// absent, malformed, or expired access token all read as logged out.
func (m *Manager) IsLoggedIn() bool {
	raw, err := m.store.Get(tokenstore.Access)
	if err != nil {
		return false
	}
	return !claims.Expired(raw)
}

// Claims returns the claim set of the current access token, re-derived on
// every call so a silent refresh is never observed stale.
func (m *Manager) Claims() (*claims.ClaimSet, error) {
	raw, err := m.store.Get(tokenstore.Access)
	if err != nil {
		return nil, errors.Wrap(claims.ErrInvalidToken, "[Claims] no access token")
	}
	return claims.Decode(raw)
}

// Role returns the current role, if a decodable session is present.
func (m *Manager) Role() (claims.Role, bool) {
	c, err := m.Claims()
	if err != nil {
		return "", false
	}
	return c.Role, true
}

// TenantID returns the tenant claim, empty when absent.
func (m *Manager) TenantID() string {
	c, err := m.Claims()
	if err != nil {
		return ""
	}
	return c.TenantID
}

// Status returns the account status claim, empty when absent.
func (m *Manager) Status() string {
	c, err := m.Claims()
	if err != nil {
		return ""
	}
	return c.Status
}

// Subject returns the user ID claim, empty when absent.
func (m *Manager) Subject() string {
	c, err := m.Claims()
	if err != nil {
		return ""
	}
	return c.Subject
}

// Subscribe registers an observer of logged-in transitions. The current
// value is not replayed; observers see changes only.
func (m *Manager) Subscribe(fn func(loggedIn bool)) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.subs = append(m.subs, fn)
}

// Login authenticates, stores the token pair, and navigates to the
// role-specific landing route.
func (m *Manager) Login(ctx context.Context, credentials authapi.Credentials) error {
	response, err := m.api.Authenticate(ctx, credentials)
	if err != nil {
		return errors.Wrap(err, "[Login] Authenticate")
	}

	if err := m.store.SetPair(response.AccessToken, response.RefreshToken); err != nil {
		return errors.Wrap(err, "[Login] SetPair")
	}

	role, _ := m.Role()
	m.log.Info().Str("role", string(role)).Msg("session established")
	m.navigate(LandingRoute(role))
	return nil
}

// Logout is the universal reset transition, reachable from any state. The
// backend call is best-effort; both tokens are cleared and navigation is
// forced to the login route regardless of its outcome. Idempotent.
func (m *Manager) Logout(ctx context.Context) {
	if refreshToken, err := m.store.Get(tokenstore.Refresh); err == nil {
		if err := m.api.Logout(ctx, refreshToken); err != nil {
			m.log.Warn().Err(err).Msg("backend logout failed, clearing session anyway")
		}
	}

	if err := m.store.Clear(); err != nil {
		m.log.Error().Err(err).Msg("failed to clear token pair")
	}
	m.navigate(RouteLogin)
}

// ForceLogout is the refresh coordinator's failure hook. The coordinator
// has already cleared the pair, so this only finishes the teardown.
func (m *Manager) ForceLogout() {
	m.Logout(context.Background())
}

// CreateAccount runs account creation and stores the returned pair. No
// navigation: the original flow keeps the user on the activation screen.
func (m *Manager) CreateAccount(ctx context.Context, request authapi.AccountRequest) error {
	response, err := m.api.CreateAccount(ctx, request)
	if err != nil {
		return errors.Wrap(err, "[CreateAccount] api")
	}
	if err := m.store.SetPair(response.AccessToken, response.RefreshToken); err != nil {
		return errors.Wrap(err, "[CreateAccount] SetPair")
	}
	return nil
}

// ActivateAccount finishes account creation with the emailed token.
func (m *Manager) ActivateAccount(ctx context.Context, token, password string) error {
	return m.api.ActivateAccount(ctx, token, password)
}

// ResendActivation requests a fresh activation link.
func (m *Manager) ResendActivation(ctx context.Context, email string) error {
	return m.api.ResendActivation(ctx, email)
}

func (m *Manager) navigate(route string) {
	if m.nav == nil {
		m.log.Debug().Str("route", route).Msg("no navigator configured")
		return
	}
	m.nav.Navigate(route)
}

// recompute runs synchronously on every store mutation.
func (m *Manager) recompute() {
	active := m.IsLoggedIn()

	m.lock.Lock()
	changed := active != m.lastActive
	m.lastActive = active
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.lock.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(active)
	}
}
