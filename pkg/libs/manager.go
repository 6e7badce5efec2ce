package libs

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oarkflow/streamguard/pkg/contracts"
	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/models"
	"github.com/oarkflow/streamguard/pkg/ratelimit"
	"github.com/oarkflow/streamguard/pkg/rules"
	"github.com/oarkflow/streamguard/pkg/validation"
)

// Manager is what the HTTP handlers reach through objects.Manager.
type Manager struct {
	Config   *Config
	workflow contracts.ResetWorkflow
	limiter  *ratelimit.Limiter
	sink     contracts.AuditSink
	xss      *rules.NoXSS
	logger   zerolog.Logger
}

type ManagerOption func(*Manager)

func WithManagerLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(cfg *Config, workflow contracts.ResetWorkflow, limiter *ratelimit.Limiter, sink contracts.AuditSink, opts ...ManagerOption) *Manager {
	if cfg == nil {
		cfg = &Config{EndpointMax: 30, EndpointDecay: time.Minute}
	}
	m := &Manager{
		Config:   cfg,
		workflow: workflow,
		limiter:  limiter,
		sink:     sink,
		xss:      cfg.XSSRule(),
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Workflow() contracts.ResetWorkflow {
	return m.workflow
}

func (m *Manager) Limiter() *ratelimit.Limiter {
	return m.limiter
}

func (m *Manager) HitEndpoint(ctx context.Context, path, ip string, maxAttempts int) (bool, time.Duration, error) {
	if maxAttempts <= 0 {
		maxAttempts = m.Config.EndpointMax
	}
	decay := m.Config.EndpointDecay
	if decay <= 0 {
		decay = time.Minute
	}
	return m.limiter.Hit(ctx, ratelimit.EndpointKey(path, ip), ratelimit.Tier{MaxAttempts: maxAttempts, Decay: decay})
}

// MaxInspectDepth bounds how deeply InspectInput follows nested arrays and
// objects. Deeper input is rejected rather than skipped.
const MaxInspectDepth = 16

// InspectInput runs the XSS and SQL injection rules over every string in
// the input, nested ones included, in attribute order so the reported field
// is stable. A nested string is named by its dotted path, such as meta.q or
// tags.0.
func (m *Manager) InspectInput(input models.Input) error {
	flat := make(models.Input, len(input))
	for k, v := range input {
		if path, ok := flattenStrings(k, v, 1, flat); !ok {
			return errs.Validation(map[string][]string{
				path: {fmt.Sprintf("The %s field is nested too deeply.", rules.Label(path))},
			})
		}
	}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	v := validation.New(flat,
		validation.WithLogger(m.logger),
		validation.WithFailureLogging(m.Config.LogValidationFailures),
	)
	for _, k := range keys {
		v.Field(k, m.xss, rules.NewNoSQLInjection(m.sink))
	}
	return v.Validate()
}

// flattenStrings copies every string leaf of value into out under its dotted
// path. It reports the offending path and false past MaxInspectDepth.
func flattenStrings(path string, value any, depth int, out models.Input) (string, bool) {
	if depth > MaxInspectDepth {
		return path, false
	}
	switch v := value.(type) {
	case string:
		out[path] = v
	case []string:
		for i, item := range v {
			out[path+"."+strconv.Itoa(i)] = item
		}
	case []any:
		for i, item := range v {
			if p, ok := flattenStrings(path+"."+strconv.Itoa(i), item, depth+1, out); !ok {
				return p, false
			}
		}
	case map[string]any:
		for k, item := range v {
			if p, ok := flattenStrings(path+"."+k, item, depth+1, out); !ok {
				return p, false
			}
		}
	case models.Input:
		return flattenStrings(path, map[string]any(v), depth, out)
	}
	return "", true
}
