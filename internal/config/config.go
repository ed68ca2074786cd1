package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		Driver string
		DSN    string
	}
	OIDC struct {
		Issuer       string
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}
	Feed struct {
		Driver string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Realtime struct {
		// Origins lists browser origins allowed to open the websocket.
		// Empty means same-origin only. FREQ_REALTIME_ORIGINS is space separated.
		Origins []string
	}
	RateLimit struct {
		RPS   float64
		Burst int
	}
	AdminEmail      string
	SessionLifetime time.Duration
	InsecureCookies bool
}

// OIDCEnabled reports whether an OAuth/OIDC identity provider is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OIDC.Issuer != ""
}

// Load reads config from environment (FREQ_ prefix) and optional frequency.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FREQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("frequency")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("feed.driver", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.OIDC.Issuer = v.GetString("oidc.issuer")
	cfg.OIDC.ClientID = v.GetString("oidc.client_id")
	cfg.OIDC.ClientSecret = v.GetString("oidc.client_secret")
	cfg.OIDC.RedirectURL = v.GetString("oidc.redirect_url")
	cfg.Feed.Driver = v.GetString("feed.driver")
	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.Realtime.Origins = v.GetStringSlice("realtime.origins")
	cfg.RateLimit.RPS = v.GetFloat64("ratelimit.rps")
	cfg.RateLimit.Burst = v.GetInt("ratelimit.burst")
	cfg.AdminEmail = v.GetString("admin_email")
	cfg.InsecureCookies = v.GetBool("insecure_cookies")

	lifetime, err := time.ParseDuration(v.GetString("session.lifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid FREQ_SESSION_LIFETIME: %w", err)
	}
	cfg.SessionLifetime = lifetime

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "sqlite3", "mysql", "postgres":
	case "":
		return fmt.Errorf("FREQ_DB_DRIVER is required (sqlite3, mysql, postgres)")
	default:
		return fmt.Errorf("FREQ_DB_DRIVER %q is not supported (sqlite3, mysql, postgres)", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("FREQ_DB_DSN is required")
	}

	switch c.Feed.Driver {
	case "memory", "redis":
	case "postgres":
		if c.DB.Driver != "postgres" {
			return fmt.Errorf("FREQ_FEED_DRIVER=postgres requires FREQ_DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("FREQ_FEED_DRIVER %q is not supported (memory, redis, postgres)", c.Feed.Driver)
	}

	switch c.Log.Format {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("FREQ_LOG_FORMAT %q is not supported (text, json, logfmt)", c.Log.Format)
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("FREQ_RATELIMIT_RPS and FREQ_RATELIMIT_BURST must be positive")
	}

	// The OIDC block is optional, but once an issuer is set the rest of it is required.
	if c.OIDCEnabled() {
		if c.OIDC.ClientID == "" {
			return fmt.Errorf("FREQ_OIDC_CLIENT_ID is required when FREQ_OIDC_ISSUER is set")
		}
		if c.OIDC.ClientSecret == "" {
			return fmt.Errorf("FREQ_OIDC_CLIENT_SECRET is required when FREQ_OIDC_ISSUER is set")
		}
		if c.OIDC.RedirectURL == "" {
			return fmt.Errorf("FREQ_OIDC_REDIRECT_URL is required when FREQ_OIDC_ISSUER is set")
		}
	}
	return nil
}
