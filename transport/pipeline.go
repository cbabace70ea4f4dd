// Package transport implements the authenticated request pipeline as an
// http.RoundTripper. Every protected call gets the current access token
// attached; an authorization failure hands the request to the refresh
// coordinator and the call is replayed once with the new token.
package transport

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/scothinks/bioverify/authapi"
	"github.com/scothinks/bioverify/tokenstore"
)

const requestIDHeader = "X-Request-ID"

// Refresher is the coordinator entry point the pipeline delegates 401s to.
type Refresher interface {
	Coordinate(ctx context.Context) (string, error)
}

// Pipeline wraps a base RoundTripper with bearer attachment and the
// 401-refresh-replay cycle. Requests to the auth endpoints bypass it
// entirely.
type Pipeline struct {
	base  http.RoundTripper
	store tokenstore.Store
	coord Refresher
	log   zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBase sets the transport the pipeline sends through. Defaults to
// http.DefaultTransport.
func WithBase(base http.RoundTripper) Option {
	return func(p *Pipeline) {
		p.base = base
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

func New(store tokenstore.Store, coord Refresher, options ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("[transport.New] store is required")
	}
	if coord == nil {
		return nil, errors.New("[transport.New] refresher is required")
	}

	p := &Pipeline{
		base:  http.DefaultTransport,
		store: store,
		coord: coord,
		log:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// RoundTrip implements http.RoundTripper.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	if isAuthEndpoint(req.URL.Path) {
		return p.base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	out.Header.Set(requestIDHeader, uuid.New().String())

	// Absence of a token is not an error: the request proceeds and fails
	// naturally against the backend.
	accessToken, err := p.store.Get(tokenstore.Access)
	if err == nil {
		setBearer(out, accessToken)
	}

	resp, err := p.base.RoundTrip(out)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeError).Inc()
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		requestsTotal.WithLabelValues(outcomeOK).Inc()
		return resp, nil
	}

	return p.handleUnauthorized(req, resp)
}

// handleUnauthorized runs one refresh-and-replay cycle. The second response
// is returned verbatim: a 401 on the replayed request is surfaced to the
// caller, never fed back into the coordinator.
func (p *Pipeline) handleUnauthorized(req *http.Request, firstResp *http.Response) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		// The body was consumed by the first attempt and cannot be rewound.
		p.log.Warn().Str("url", req.URL.Path).Msg("401 on unreplayable request")
		requestsTotal.WithLabelValues(outcomeUnauthorized).Inc()
		return firstResp, nil
	}

	refreshesTotal.Inc()
	accessToken, err := p.coord.Coordinate(req.Context())
	if err != nil {
		// Logout has already been forced by the coordinator; the caller
		// gets the original authorization failure.
		refreshFailuresTotal.Inc()
		requestsTotal.WithLabelValues(outcomeUnauthorized).Inc()
		p.log.Debug().Err(err).Str("url", req.URL.Path).Msg("refresh failed, surfacing 401")
		return firstResp, nil
	}

	drain(firstResp)

	retry := req.Clone(req.Context())
	retry.Header.Set(requestIDHeader, uuid.New().String())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrap(err, "[RoundTrip] GetBody")
		}
		retry.Body = body
	}
	setBearer(retry, accessToken)

	replaysTotal.Inc()
	resp, err := p.base.RoundTrip(retry)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeError).Inc()
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		requestsTotal.WithLabelValues(outcomeUnauthorized).Inc()
	} else {
		requestsTotal.WithLabelValues(outcomeOK).Inc()
	}
	return resp, nil
}

func setBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// isAuthEndpoint reports whether the path belongs to the authentication
// surface. Those calls carry no bearer token and never trigger a refresh.
func isAuthEndpoint(path string) bool {
	return strings.Contains(path, authapi.BasePath+"/")
}

// drain discards the rest of a response body so the connection can be
// reused for the replay.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
