package httpapi

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kydenul/spinwheel"
)

// SessionRegistry keeps live sessions addressable by ID. Sessions expire after
// ttl without access.
type SessionRegistry struct {
	sessions *cache.Cache
}

// NewSessionRegistry creates a registry with the given idle expiry
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = spinwheel.DefaultSessionTTL
	}
	return &SessionRegistry{sessions: cache.New(ttl, 2*ttl)}
}

// Put registers s
func (r *SessionRegistry) Put(s *spinwheel.Session) {
	r.sessions.Set(s.ID(), s, cache.DefaultExpiration)
}

// Get returns the session and refreshes its expiry
func (r *SessionRegistry) Get(id string) (*spinwheel.Session, error) {
	v, found := r.sessions.Get(id)
	if !found {
		return nil, spinwheel.ErrSessionNotFound.WithDetails(id)
	}
	s := v.(*spinwheel.Session)
	r.sessions.Set(id, s, cache.DefaultExpiration)
	return s, nil
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int { return r.sessions.ItemCount() }
