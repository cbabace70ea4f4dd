// Package tokenstore persists the access/refresh token pair. It is the only
// component allowed to read or write stored credentials.
package tokenstore

import (
	"sync"

	"github.com/pkg/errors"
)

// Kind selects one of the two persisted credentials.
type Kind int

const (
	Access Kind = iota
	Refresh
)

// Storage keys, shared by every durable backend. These match the keys the
// backend's console clients have always used.
const (
	AccessTokenKey  = "bioverify_access_token"
	RefreshTokenKey = "bioverify_refresh_token"
)

// ErrNotFound is returned by Get when the requested token is absent.
var ErrNotFound = errors.New("token not found")

// Store persists the token pair. No validation is performed: any string is
// accepted and returned verbatim. Implementations must keep the pair
// invariant - SetPair writes both values or neither, Clear removes both and
// is idempotent. SetAccess exists because a silent refresh rotates only the
// access token.
type Store interface {
	Get(kind Kind) (string, error)
	SetAccess(token string) error
	SetPair(access, refresh string) error
	Clear() error
}

// Notifier is implemented by stores that signal mutations. Session state is
// recomputed synchronously on each signal; there is no polling.
type Notifier interface {
	Subscribe(fn func())
}

// notifier is the shared Subscribe/publish implementation embedded by the
// store backends.
type notifier struct {
	mu   sync.Mutex
	subs []func()
}

func (n *notifier) Subscribe(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

func (n *notifier) publish() {
	n.mu.Lock()
	subs := make([]func(), len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
