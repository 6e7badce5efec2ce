package config

import (
	"github.com/oarkflow/streamguard/pkg/objects"
)

type Config struct{}

func (a *Config) Prefix() string {
	return "guard"
}

// Load registers defaults under the guard prefix. Every value can be
// overridden through the environment variable named next to it.
func (a *Config) Load() {
	c := objects.Config
	c.Add("app.name", "StreamGuard")
	c.Add("app.version", "1.0.0")
	c.Add("app.env", c.Env("APP_ENV", "development"))
	c.Add(a.Prefix(), map[string]any{
		"addr":   c.Env("GUARD_ADDR", ":3000"),
		"prefix": c.Env("GUARD_ROUTE_PREFIX", "/"),

		"proxy_header":    c.Env("GUARD_PROXY_HEADER", "X-Forwarded-For"),
		"trusted_proxies": c.Env("GUARD_TRUSTED_PROXIES", ""),

		"database": map[string]any{
			"driver":   c.Env("GUARD_DB_DRIVER", "sqlite"),
			"host":     c.Env("GUARD_DB_HOST", "localhost"),
			"port":     c.Env("GUARD_DB_PORT", 5432),
			"username": c.Env("GUARD_DB_USERNAME", ""),
			"password": c.Env("GUARD_DB_PASSWORD", ""),
			"name":     c.Env("GUARD_DB_NAME", "streamguard.db"),
		},
		"redis": map[string]any{
			"addr":     c.Env("GUARD_REDIS_ADDR", ""),
			"password": c.Env("GUARD_REDIS_PASSWORD", ""),
			"db":       c.Env("GUARD_REDIS_DB", 0),
			"prefix":   c.Env("GUARD_REDIS_PREFIX", "streamguard:ratelimit:"),
		},
		"rate_limit": map[string]any{
			"forgot_ip":      c.Env("GUARD_RATE_LIMIT_FORGOT_IP", 3),
			"forgot_email":   c.Env("GUARD_RATE_LIMIT_FORGOT_EMAIL", 2),
			"reset_ip":       c.Env("GUARD_RATE_LIMIT_RESET_IP", 5),
			"reset_email":    c.Env("GUARD_RATE_LIMIT_RESET_EMAIL", 3),
			"decay":          c.Env("GUARD_RATE_LIMIT_DECAY", "1h"),
			"endpoint_max":   c.Env("GUARD_RATE_LIMIT_ENDPOINT_MAX", 30),
			"endpoint_decay": c.Env("GUARD_RATE_LIMIT_ENDPOINT_DECAY", "1m"),
		},
		"delay": map[string]any{
			"min": c.Env("GUARD_DELAY_MIN", "100ms"),
			"max": c.Env("GUARD_DELAY_MAX", "300ms"),
		},
		"token_ttl":        c.Env("GUARD_TOKEN_TTL", "60m"),
		"cleanup_interval": c.Env("GUARD_CLEANUP_INTERVAL", "10m"),
		"audit_queue":      c.Env("GUARD_AUDIT_QUEUE", 256),
		"password": map[string]any{
			"min_length":  c.Env("GUARD_PASSWORD_MIN_LENGTH", 8),
			"max_length":  c.Env("GUARD_PASSWORD_MAX_LENGTH", 128),
			"brand_terms": c.Env("GUARD_PASSWORD_BRAND_TERMS", ""),
			"algo":        c.Env("GUARD_PASSWORD_ALGO", "argon2id"),

			"breach_check":    c.Env("GUARD_PASSWORD_BREACH_CHECK", true),
			"breach_endpoint": c.Env("GUARD_PASSWORD_BREACH_ENDPOINT", "https://api.pwnedpasswords.com/range/"),
			"breach_timeout":  c.Env("GUARD_PASSWORD_BREACH_TIMEOUT", "3s"),
		},
		"html_fields":             c.Env("GUARD_HTML_FIELDS", "description,content,bio,about,message"),
		"log_level":               c.Env("GUARD_LOG_LEVEL", "info"),
		"log_pretty":              c.Env("GUARD_LOG_PRETTY", true),
		"log_validation_failures": c.Env("GUARD_LOG_VALIDATION_FAILURES", false),
	})
}
