package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/scothinks/bioverify/authapi"
	"github.com/scothinks/bioverify/claims"
	"github.com/scothinks/bioverify/client"
	"github.com/scothinks/bioverify/internal/config"
	"github.com/scothinks/bioverify/session"
	"github.com/scothinks/bioverify/tokenstore"
)

const (
	testEmail    = "agent@tenant-one.example"
	testPassword = "password123"
	refreshDelay = 250 * time.Millisecond
)

// fakeBackend mimics the console backend: it issues tokens, accepts exactly
// the current access token on protected routes, and rotates the access
// token on refresh.
type fakeBackend struct {
	t *testing.T

	lock          sync.Mutex
	currentAccess string
	refreshToken  string
	refreshCalls  int
	refreshFails  bool
	logoutCalls   int

	server *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{t: t, refreshToken: "refresh-1"}

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/auth/authenticate", b.authenticate).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/auth/refreshtoken", b.refresh).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/auth/logout", b.logout).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/users/me/record", b.record).Methods(http.MethodGet)

	b.server = httptest.NewServer(router)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) mint(role claims.Role) string {
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":      "user-1",
		"role":     string(role),
		"tenantId": "tenant-1",
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(b.t, err)
	return raw
}

func (b *fakeBackend) authenticate(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	b.currentAccess = b.mint(claims.RoleAgent)
	access, refresh := b.currentAccess, b.refreshToken
	b.lock.Unlock()

	json.NewEncoder(w).Encode(authapi.JWTResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         string(claims.RoleAgent),
	})
}

func (b *fakeBackend) refresh(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	b.refreshCalls++
	fails := b.refreshFails
	b.lock.Unlock()

	if fails {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "refresh token revoked"})
		return
	}

	// Slow refresh: keeps the flight open while concurrent 401s pile up.
	time.Sleep(refreshDelay)

	b.lock.Lock()
	b.currentAccess = b.mint(claims.RoleAgent)
	access := b.currentAccess
	b.lock.Unlock()

	json.NewEncoder(w).Encode(authapi.RefreshResponse{AccessToken: access})
}

func (b *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	b.logoutCalls++
	b.lock.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (b *fakeBackend) record(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	accepted := "Bearer " + b.currentAccess
	b.lock.Unlock()

	if r.Header.Get("Authorization") != accepted {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "unauthorized"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"id": "rec-1", "fullName": "Ada Okafor", "status": "VERIFIED"})
}

// expireSession makes every stored access token invalid server-side, the
// way a short-lived token goes stale between screens.
func (b *fakeBackend) expireSession() {
	b.lock.Lock()
	b.currentAccess = "rotated-away"
	b.lock.Unlock()
}

type fixture struct {
	backend *fakeBackend
	client  *client.Client
	store   *tokenstore.MemStore
	nav     *routeRecorder
}

type routeRecorder struct {
	lock   sync.Mutex
	routes []string
}

func (r *routeRecorder) Navigate(route string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.routes = append(r.routes, route)
}

func (r *routeRecorder) last() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

func setup(t *testing.T) *fixture {
	t.Helper()

	backend := newFakeBackend(t)
	t.Setenv("BIOVERIFY_BASE_URL", backend.server.URL)

	store := tokenstore.NewMemStore()
	nav := &routeRecorder{}

	c, err := client.New(config.Env{}, client.WithStore(store), client.WithNavigator(nav))
	require.NoError(t, err)

	return &fixture{backend: backend, client: c, store: store, nav: nav}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()

	err := f.client.Session.Login(context.Background(), authapi.Credentials{
		Email:    testEmail,
		Password: testPassword,
	})
	require.NoError(t, err)
}

func TestLoginEstablishesSession(t *testing.T) {
	f := setup(t)

	f.login(t)

	require.True(t, f.client.Session.IsLoggedIn())
	role, ok := f.client.Session.Role()
	require.True(t, ok)
	require.Equal(t, claims.RoleAgent, role)
	require.Equal(t, session.LandingRoute(role), f.nav.last())

	_, err := f.store.Get(tokenstore.Refresh)
	require.NoError(t, err)
}

func TestConcurrentExpiryTriggersSingleRefresh(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.backend.expireSession()

	// Several parallel calls discover the expired session at once, like a
	// dashboard firing its load requests together.
	const workers = 6
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.client.Records.CurrentUserRecord(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}

	f.backend.lock.Lock()
	refreshCalls := f.backend.refreshCalls
	currentAccess := f.backend.currentAccess
	f.backend.lock.Unlock()
	require.Equal(t, 1, refreshCalls, "concurrent 401s must share one refresh call")

	// Everyone was replayed with the rotated token, which is now stored.
	stored, err := f.store.Get(tokenstore.Access)
	require.NoError(t, err)
	require.Equal(t, currentAccess, stored)
	require.True(t, f.client.Session.IsLoggedIn())
}

func TestRefreshRejectionForcesLogout(t *testing.T) {
	f := setup(t)
	f.login(t)

	f.backend.expireSession()
	f.backend.lock.Lock()
	f.backend.refreshFails = true
	f.backend.lock.Unlock()

	_, err := f.client.Records.CurrentUserRecord(context.Background())

	// The caller sees the authorization failure, not a hang.
	var apiErr *authapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	// Both tokens are gone and navigation landed on the login route.
	_, err = f.store.Get(tokenstore.Access)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)
	_, err = f.store.Get(tokenstore.Refresh)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)
	require.Equal(t, session.RouteLogin, f.nav.last())
	require.False(t, f.client.Session.IsLoggedIn())
}

func TestSilentRefreshKeepsSessionActive(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.backend.expireSession()

	record, err := f.client.Records.CurrentUserRecord(context.Background())
	require.NoError(t, err)
	require.Equal(t, "rec-1", record.ID)

	// The session stayed active across the silent refresh; no navigation
	// beyond the login landing happened.
	require.True(t, f.client.Session.IsLoggedIn())
	require.Equal(t, session.RouteAgentHome, f.nav.last())
}
