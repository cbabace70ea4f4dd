// Package client assembles the BioVerify console client: token store,
// refresh coordinator, authenticated pipeline, session manager, and the
// protected API surface.
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/scothinks/bioverify/authapi"
	"github.com/scothinks/bioverify/internal/config"
	"github.com/scothinks/bioverify/records"
	"github.com/scothinks/bioverify/refresh"
	"github.com/scothinks/bioverify/session"
	"github.com/scothinks/bioverify/tokenstore"
	"github.com/scothinks/bioverify/transport"
)

// Client is the fully wired console client.
type Client struct {
	Session *session.Manager
	Records *records.Client
	Auth    *authapi.Client

	store tokenstore.Store
	httpc *http.Client
}

type settings struct {
	store   tokenstore.Store
	nav     session.Navigator
	log     zerolog.Logger
	base    http.RoundTripper
	timeout time.Duration
}

// Option configures the assembled client.
type Option func(*settings)

// WithStore overrides the config-selected token store.
func WithStore(store tokenstore.Store) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithNavigator sets the navigation sink for login/logout transitions.
func WithNavigator(nav session.Navigator) Option {
	return func(s *settings) {
		s.nav = nav
	}
}

// WithLogger sets the logger shared by all components.
func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithBaseTransport sets the transport beneath the pipeline.
func WithBaseTransport(base http.RoundTripper) Option {
	return func(s *settings) {
		s.base = base
	}
}

// New wires a client against cfg. Store selection: an explicit WithStore
// wins, then a configured Redis address, then the token file.
func New(cfg config.Env, options ...Option) (*Client, error) {
	s := settings{
		log:     zerolog.Nop(),
		base:    http.DefaultTransport,
		timeout: cfg.GetHTTPTimeout(),
	}
	for _, opt := range options {
		opt(&s)
	}

	store := s.store
	if store == nil {
		var err error
		store, err = storeFromConfig(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "[client.New] storeFromConfig")
		}
	}

	baseURL := cfg.GetBaseURL()
	authClient := authapi.New(baseURL,
		authapi.WithLogger(s.log.With().Str("component", "authapi").Logger()),
		authapi.WithHTTPClient(&http.Client{Timeout: s.timeout}),
	)

	sessionOpts := []session.Option{
		session.WithLogger(s.log.With().Str("component", "session").Logger()),
	}
	if s.nav != nil {
		sessionOpts = append(sessionOpts, session.WithNavigator(s.nav))
	}
	sessionMgr, err := session.New(store, authClient, sessionOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] session.New")
	}

	coordinator, err := refresh.New(store,
		func(ctx context.Context, refreshToken string) (string, error) {
			response, err := authClient.Refresh(ctx, refreshToken)
			if err != nil {
				return "", err
			}
			return response.AccessToken, nil
		},
		refresh.OnFailure(sessionMgr.ForceLogout),
		refresh.WithLogger(s.log.With().Str("component", "refresh").Logger()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] refresh.New")
	}

	pipeline, err := transport.New(store, coordinator,
		transport.WithBase(s.base),
		transport.WithLogger(s.log.With().Str("component", "transport").Logger()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] transport.New")
	}

	httpc := &http.Client{Transport: pipeline, Timeout: s.timeout}

	return &Client{
		Session: sessionMgr,
		Records: records.New(baseURL, httpc),
		Auth:    authClient,
		store:   store,
		httpc:   httpc,
	}, nil
}

// HTTP returns the pipeline-wrapped client every protected call must go
// through.
func (c *Client) HTTP() *http.Client {
	return c.httpc
}

// Store exposes the token store, mainly for tests and tooling.
func (c *Client) Store() tokenstore.Store {
	return c.store
}

func storeFromConfig(cfg config.Env) (tokenstore.Store, error) {
	if addr := cfg.GetRedisAddr(); addr != "" {
		return tokenstore.NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}))
	}

	key, err := cfg.GetTokenKey()
	if err != nil {
		return nil, err
	}
	return tokenstore.NewFileStore(cfg.GetTokenFile(), key)
}
