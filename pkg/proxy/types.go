package proxy

import (
	"fmt"
	"net/url"
	"time"
)

// Endpoint is one network egress point handed out by a provider.
// Endpoints are never mutated in place; expiry or invalidation removes
// them from the pool.
type Endpoint struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Password  string `json:"password"`
	Protocol  string `json:"protocol"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds, 0 means no expiry
}

// IsExpired reports whether the endpoint's expiry timestamp has passed.
func (e *Endpoint) IsExpired() bool {
	if e.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() >= e.ExpiresAt
}

// URL renders the endpoint as a proxy URL usable by an HTTP transport.
func (e *Endpoint) URL() *url.URL {
	u := &url.URL{
		Scheme: e.Protocol,
		Host:   fmt.Sprintf("%s:%d", e.Host, e.Port),
	}
	if e.User != "" {
		u.User = url.UserPassword(e.User, e.Password)
	}
	return u
}

// Equal reports whether two endpoints share the same full identity.
// Endpoints carry no key of their own, so matching uses every field
// except expiry.
func (e *Endpoint) Equal(other *Endpoint) bool {
	if other == nil {
		return false
	}
	return e.Host == other.Host &&
		e.Port == other.Port &&
		e.Protocol == other.Protocol &&
		e.User == other.User &&
		e.Password == other.Password
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("%s://%s:%d", e.Protocol, e.Host, e.Port)
}
