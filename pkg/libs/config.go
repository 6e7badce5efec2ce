package libs

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/streamguard/pkg/breach"
	"github.com/oarkflow/streamguard/pkg/contracts"
	"github.com/oarkflow/streamguard/pkg/ratelimit"
	"github.com/oarkflow/streamguard/pkg/reset"
	"github.com/oarkflow/streamguard/pkg/rules"
)

type Config struct {
	Addr        string
	RoutePrefix string

	// ProxyHeader is read for the client address only on requests from one
	// of TrustedProxies. With no trusted proxies it is never read.
	ProxyHeader    string
	TrustedProxies []string

	Database    DatabaseConfig
	Redis       RedisConfig

	Tiers         reset.Tiers
	EndpointDecay time.Duration
	EndpointMax   int
	MinDelay      time.Duration
	MaxDelay      time.Duration
	TokenTTL      time.Duration

	CleanupInterval time.Duration
	AuditQueueSize  int

	PasswordPolicy PasswordPolicyConfig
	HTMLFields     []string

	LogLevel              string
	LogPretty             bool
	LogValidationFailures bool
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Password string
	Name     string
}

// RedisConfig selects the shared rate-limit store. An empty Addr keeps the
// counters in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// PasswordPolicyConfig shapes the reset-boundary password policy. With
// BreachCheck set, new passwords are also looked up in the breach range API
// at BreachEndpoint.
type PasswordPolicyConfig struct {
	MinLength     int
	MaxLength     int
	BrandTerms    []string
	HashAlgorithm string

	BreachCheck    bool
	BreachEndpoint string
	BreachTimeout  time.Duration
}

// LoadConfig reads the guard.* keys registered by config.Config.Load.
func LoadConfig(cfg contracts.Config) *Config {
	decay := cfg.GetDuration("guard.rate_limit.decay", "1h")
	tier := func(name string, fallback int) ratelimit.Tier {
		return ratelimit.Tier{MaxAttempts: cfg.GetInt("guard.rate_limit."+name, fallback), Decay: decay}
	}
	return &Config{
		Addr:        cfg.GetString("guard.addr", ":3000"),
		RoutePrefix: cfg.GetString("guard.prefix", "/"),

		ProxyHeader:    cfg.GetString("guard.proxy_header", fiber.HeaderXForwardedFor),
		TrustedProxies: cfg.GetStrings("guard.trusted_proxies"),

		Database: DatabaseConfig{
			Driver:   cfg.GetString("guard.database.driver", "sqlite"),
			Host:     cfg.GetString("guard.database.host", "localhost"),
			Port:     cfg.GetInt("guard.database.port", 5432),
			Username: cfg.GetString("guard.database.username"),
			Password: cfg.GetString("guard.database.password"),
			Name:     cfg.GetString("guard.database.name", "streamguard.db"),
		},
		Redis: RedisConfig{
			Addr:     cfg.GetString("guard.redis.addr"),
			Password: cfg.GetString("guard.redis.password"),
			DB:       cfg.GetInt("guard.redis.db", 0),
			Prefix:   cfg.GetString("guard.redis.prefix", "streamguard:ratelimit:"),
		},
		Tiers: reset.Tiers{
			ForgotIP:    tier("forgot_ip", 3),
			ForgotEmail: tier("forgot_email", 2),
			ResetIP:     tier("reset_ip", 5),
			ResetEmail:  tier("reset_email", 3),
		},
		EndpointMax:     cfg.GetInt("guard.rate_limit.endpoint_max", 30),
		EndpointDecay:   cfg.GetDuration("guard.rate_limit.endpoint_decay", "1m"),
		MinDelay:        cfg.GetDuration("guard.delay.min", "100ms"),
		MaxDelay:        cfg.GetDuration("guard.delay.max", "300ms"),
		TokenTTL:        cfg.GetDuration("guard.token_ttl", "60m"),
		CleanupInterval: cfg.GetDuration("guard.cleanup_interval", "10m"),
		AuditQueueSize:  cfg.GetInt("guard.audit_queue", 256),
		PasswordPolicy: PasswordPolicyConfig{
			MinLength:     cfg.GetInt("guard.password.min_length", rules.DefaultPasswordMinLength),
			MaxLength:     cfg.GetInt("guard.password.max_length", rules.DefaultPasswordMaxLength),
			BrandTerms:    cfg.GetStrings("guard.password.brand_terms"),
			HashAlgorithm: cfg.GetString("guard.password.algo", reset.DefaultHashAlgorithm),

			BreachCheck:    cfg.GetBool("guard.password.breach_check", true),
			BreachEndpoint: cfg.GetString("guard.password.breach_endpoint", breach.DefaultEndpoint),
			BreachTimeout:  cfg.GetDuration("guard.password.breach_timeout", "3s"),
		},
		HTMLFields:            cfg.GetStrings("guard.html_fields"),
		LogLevel:              cfg.GetString("guard.log_level", "info"),
		LogPretty:             cfg.GetBool("guard.log_pretty", true),
		LogValidationFailures: cfg.GetBool("guard.log_validation_failures", false),
	}
}

// ApplyProxy sets the fiber options that decide what c.IP() returns. Every
// rate-limit tier keys on that address, so the proxy header is honoured
// only behind a trusted proxy and only when it holds a valid IP.
func (c *Config) ApplyProxy(cfg fiber.Config) fiber.Config {
	cfg.ProxyHeader = c.ProxyHeader
	if cfg.ProxyHeader == "" {
		cfg.ProxyHeader = fiber.HeaderXForwardedFor
	}
	cfg.EnableTrustedProxyCheck = true
	cfg.TrustedProxies = append([]string(nil), c.TrustedProxies...)
	cfg.EnableIPValidation = true
	return cfg
}

// BreachChecker is nil when the breach lookup is disabled.
func (c *Config) BreachChecker() contracts.BreachChecker {
	if !c.PasswordPolicy.BreachCheck {
		return nil
	}
	return breach.NewHIBP(
		breach.WithEndpoint(c.PasswordPolicy.BreachEndpoint),
		breach.WithTimeout(c.PasswordPolicy.BreachTimeout),
	)
}

func (c *Config) PasswordRule() *rules.StrongPassword {
	return rules.NewStrongPassword(
		rules.WithLengthBounds(c.PasswordPolicy.MinLength, c.PasswordPolicy.MaxLength),
		rules.WithBrandTerms(c.PasswordPolicy.BrandTerms...),
	)
}

// XSSRule falls back to the built-in HTML fields when none are configured.
func (c *Config) XSSRule() *rules.NoXSS {
	if len(c.HTMLFields) == 0 {
		return rules.NewNoXSS()
	}
	return rules.NewNoXSS(rules.WithHTMLFields(c.HTMLFields...))
}
