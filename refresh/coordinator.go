// Package refresh coordinates silent access-token refreshes. Any number of
// requests can discover an expired session at the same instant; the
// coordinator guarantees that at most one refresh call is ever outstanding
// and that every waiter is released with the same new token.
package refresh

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/scothinks/bioverify/tokenstore"
)

// ErrNoSession is returned when no refresh token is stored. There is nothing
// to refresh with, so it follows the same failure path as a rejected refresh.
var ErrNoSession = errors.New("no refresh token available")

// Func performs the actual refresh network call and returns the new access
// token.
type Func func(ctx context.Context, refreshToken string) (string, error)

// Coordinator is the single-flight mechanism. All state lives on the
// instance; nothing is process-global, so the invariants are testable
// against an isolated Coordinator.
type Coordinator struct {
	store     tokenstore.Store
	refresh   Func
	onFailure func()
	group     singleflight.Group
	log       zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// OnFailure registers the hook run when a refresh cycle fails, after the
// token pair has been cleared. It fires once per failed cycle regardless of
// how many callers were waiting on it. The session manager hangs logout
// navigation here.
func OnFailure(fn func()) Option {
	return func(c *Coordinator) {
		c.onFailure = fn
	}
}

func New(store tokenstore.Store, refreshFn Func, options ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("[refresh.New] store is required")
	}
	if refreshFn == nil {
		return nil, errors.New("[refresh.New] refresh func is required")
	}

	c := &Coordinator{
		store:   store,
		refresh: refreshFn,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Coordinate obtains a fresh access token, joining the in-flight refresh if
// one exists.
//
// Callers that arrive while a refresh is outstanding are parked on it and
// released together with the same token; the check for an in-flight refresh
// and the start of a new one are a single atomic step, so no interleaving
// can dispatch two refresh calls. A caller that arrives after a cycle has
// drained starts a brand-new cycle. The token is written to the store before
// any caller is released.
//
// On failure no caller receives a token: the pair is cleared, the failure
// hook runs, and every waiter gets the error. The caller must not retry.
func (c *Coordinator) Coordinate(ctx context.Context) (string, error) {
	token, err, shared := c.group.Do("refresh", func() (any, error) {
		accessToken, err := c.runCycle(ctx)
		if err != nil {
			c.failCycle(err)
			return nil, err
		}
		return accessToken, nil
	})
	if err != nil {
		return "", err
	}

	c.log.Debug().Bool("shared", shared).Msg("refresh cycle released")
	return token.(string), nil
}

func (c *Coordinator) runCycle(ctx context.Context) (string, error) {
	refreshToken, err := c.store.Get(tokenstore.Refresh)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return "", ErrNoSession
		}
		return "", errors.Wrap(err, "[Coordinate] store.Get")
	}

	accessToken, err := c.refresh(ctx, refreshToken)
	if err != nil {
		return "", errors.Wrap(err, "[Coordinate] refresh call")
	}

	// Persist before releasing anyone: a waiter must never observe a token
	// the store does not yet hold.
	if err := c.store.SetAccess(accessToken); err != nil {
		return "", errors.Wrap(err, "[Coordinate] store.SetAccess")
	}
	return accessToken, nil
}

func (c *Coordinator) failCycle(cause error) {
	c.log.Warn().Err(cause).Msg("refresh failed, tearing down session")

	if err := c.store.Clear(); err != nil {
		c.log.Error().Err(err).Msg("failed to clear token pair")
	}
	if c.onFailure != nil {
		c.onFailure()
	}
}
