// Package config loads runtime settings from viper: defaults, an optional
// YAML file, environment variables and bound CLI flags.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/codetran/internal/logging"
	"github.com/valpere/codetran/internal/ratelimit"
	"github.com/valpere/codetran/internal/translator"
)

type ServerConfig struct {
	Port         int    `mapstructure:"port" json:"port"`
	StaticDir    string `mapstructure:"static_dir" json:"static_dir"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes" json:"max_body_bytes"`
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the client is always the socket peer.
	TrustedProxies []string `mapstructure:"trusted_proxies" json:"trusted_proxies"`
}

type Config struct {
	OpenAI    translator.Config `mapstructure:"openai" json:"openai"`
	Server    ServerConfig      `mapstructure:"server" json:"server"`
	RateLimit ratelimit.Config  `mapstructure:"ratelimit" json:"ratelimit"`
	Log       logging.Config    `mapstructure:"log" json:"log"`
}

// SetDefaults registers every known key, which also makes AutomaticEnv see
// keys that no config file mentions.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.timeout", 120*time.Second)
	v.SetDefault("openai.referer", "")
	v.SetDefault("openai.title", "")

	v.SetDefault("server.port", 3001)
	v.SetDefault("server.static_dir", "web/dist")
	v.SetDefault("server.max_body_bytes", 100*1024)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("ratelimit.window", ratelimit.DefaultWindow)
	v.SetDefault("ratelimit.max", ratelimit.DefaultMax)
	v.SetDefault("ratelimit.db_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
}

// BindEnv maps nested keys to upper-case variables (openai.api_key ->
// OPENAI_API_KEY) and adds the PORT alias for server.port.
func BindEnv(v *viper.Viper) error {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "SERVER_PORT", "PORT"); err != nil {
		return fmt.Errorf("bind PORT: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			return fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p)
		}
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got %s", c.RateLimit.Window)
	}
	if c.RateLimit.Max <= 0 {
		return fmt.Errorf("ratelimit.max must be positive, got %d", c.RateLimit.Max)
	}
	if c.OpenAI.Timeout <= 0 {
		return fmt.Errorf("openai.timeout must be positive, got %s", c.OpenAI.Timeout)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func validProxy(p string) bool {
	if strings.Contains(p, "/") {
		_, _, err := net.ParseCIDR(p)
		return err == nil
	}
	return net.ParseIP(p) != nil
}
