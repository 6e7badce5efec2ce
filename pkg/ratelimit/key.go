// Package ratelimit implements the fixed-window counters behind the password
// reset tiers and the endpoint limiter.
package ratelimit

import (
	"strings"
	"time"
)

const (
	ScopeForgotIP    = "forgot-password-ip"
	ScopeForgotEmail = "forgot-password-email"
	ScopeResetIP     = "reset-password-ip"
	ScopeResetEmail  = "reset-password-email"
	ScopeEndpoint    = "endpoint"
)

// Key addresses one counter: the scope names the tier, the identity is the
// IP address or normalized email it applies to.
type Key struct {
	Scope    string
	Identity string
}

func NewKey(scope, identity string) Key {
	return Key{Scope: scope, Identity: strings.ToLower(strings.TrimSpace(identity))}
}

// EndpointKey is the counter for one client on one route.
func EndpointKey(path, ip string) Key {
	return NewKey(ScopeEndpoint, ip+":"+path)
}

func (k Key) String() string {
	return k.Scope + ":" + k.Identity
}

// Tier is the ceiling for one scope.
type Tier struct {
	MaxAttempts int
	Decay       time.Duration
}
