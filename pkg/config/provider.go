package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// Provider is the koanf-backed key/value store behind contracts.Config.
type Provider struct {
	k *koanf.Koanf
}

// NewProvider loads envPath (dotenv format, optional) and then the process
// environment. When watchEnv is set, callback runs after every change to
// the file.
func NewProvider(envPath string, watchEnv bool, callback func()) (*Provider, error) {
	p := &Provider{k: koanf.New(".")}
	var f *file.File
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			f = file.Provider(envPath)
			if err := p.k.Load(f, dotenv.Parser()); err != nil {
				color.Red.Println("Error loading .env file: " + err.Error())
				return nil, fmt.Errorf("load %s: %w", envPath, err)
			}
		} else {
			color.Yellow.Println("No .env file found at " + envPath)
		}
	}

	if err := p.k.Load(env.Provider("", ".", nil), nil); err != nil {
		color.Red.Println("Error loading environment variables: " + err.Error())
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if watchEnv && f != nil {
		err := f.Watch(func(event any, err error) {
			if err != nil {
				log.Error().Err(err).Msg("config watch error")
				return
			}
			if err := p.k.Load(f, dotenv.Parser()); err != nil {
				log.Error().Err(err).Msg("config reload failed")
				return
			}
			if callback != nil {
				callback()
			}
		})
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", envPath, err)
		}
	}
	return p, nil
}

// Env retrieves a value loaded from the environment with an optional default.
func (p *Provider) Env(envName string, defaultValue ...any) any {
	return p.Get(envName, defaultValue...)
}

// Add sets a value or a nested map of values under name.
func (p *Provider) Add(name string, configuration any) {
	if err := p.k.Set(name, configuration); err != nil {
		panic(err)
	}
}

func (p *Provider) Get(path string, defaultValue ...any) any {
	value := p.k.Get(path)
	if value == nil {
		if len(defaultValue) > 0 {
			return defaultValue[0]
		}
		return nil
	}
	return value
}

func (p *Provider) GetString(path string, defaultValue ...any) string {
	switch v := p.Get(path, defaultValue...).(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (p *Provider) GetInt(path string, defaultValue ...any) int {
	switch v := p.Get(path, defaultValue...).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	if len(defaultValue) > 0 {
		if i, ok := defaultValue[0].(int); ok {
			return i
		}
	}
	return 0
}

func (p *Provider) GetDuration(path string, defaultValue ...any) time.Duration {
	if d, ok := toDuration(p.Get(path, defaultValue...)); ok {
		return d
	}
	if len(defaultValue) > 0 {
		if d, ok := toDuration(defaultValue[0]); ok {
			return d
		}
	}
	return 0
}

func (p *Provider) GetBool(path string, defaultValue ...any) bool {
	switch v := p.Get(path, defaultValue...).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	if len(defaultValue) > 0 {
		if b, ok := defaultValue[0].(bool); ok {
			return b
		}
	}
	return false
}

// GetStrings accepts a slice or a comma separated string. Blank entries are
// dropped.
func (p *Provider) GetStrings(path string, defaultValue ...any) []string {
	var parts []string
	switch v := p.Get(path, defaultValue...).(type) {
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
	case string:
		parts = strings.Split(v, ",")
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toDuration(value any) (time.Duration, bool) {
	switch v := value.(type) {
	case time.Duration:
		return v, true
	case int:
		return time.Duration(v) * time.Second, true
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d, true
		}
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}
