package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BlockedAttempts counts rejected attempts per scope.
var BlockedAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "streamguard_ratelimit_blocked_total",
	Help: "Attempts rejected by a rate-limit tier.",
}, []string{"scope"})
