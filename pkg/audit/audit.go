// Package audit records injection attempts reported by the validation rules.
package audit

import (
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oarkflow/streamguard/pkg/contracts"
	"github.com/oarkflow/streamguard/pkg/models"
)

// MaxLoggedValue caps how much of a payload ends up in logs.
const MaxLoggedValue = 256

var InjectionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "streamguard_injection_attempts_total",
	Help: "Injection attempts rejected by the validation rules, by family.",
}, []string{"category"})

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// LogSink writes every event at warn level.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger *zerolog.Logger) *LogSink {
	if logger == nil {
		logger = &log.Logger
	}
	return &LogSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *LogSink) LogInjectionAttempt(event models.SecurityEvent) {
	s.logger.Warn().
		Str("category", event.Category).
		Str("signature", event.Signature).
		Str("attribute", event.Attribute).
		Str("raw_value", Truncate(event.RawValue, MaxLoggedValue)).
		Time("detected_at", event.Timestamp).
		Msg("injection attempt blocked")
}

// MultiSink fans an event out to several sinks and counts it once. A sink
// that panics does not stop the others.
type MultiSink struct {
	sinks []contracts.AuditSink
}

func NewMultiSink(sinks ...contracts.AuditSink) *MultiSink {
	kept := make([]contracts.AuditSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	return &MultiSink{sinks: kept}
}

func (m *MultiSink) LogInjectionAttempt(event models.SecurityEvent) {
	InjectionAttempts.WithLabelValues(event.Category).Inc()
	for _, sink := range m.sinks {
		deliver(sink, event)
	}
}

func deliver(sink contracts.AuditSink, event models.SecurityEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("category", event.Category).Msg("audit sink panicked")
		}
	}()
	sink.LogInjectionAttempt(event)
}
