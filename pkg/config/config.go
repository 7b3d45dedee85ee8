package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		Enabled      bool          `yaml:"enabled"`
		DSN          string        `yaml:"dsn"`
		MaxConns     int32         `yaml:"max_conns"`
		QueryTimeout time.Duration `yaml:"query_timeout"`
		AutoMigrate  bool          `yaml:"auto_migrate"`
	} `yaml:"database"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret       string        `yaml:"jwt_secret"`
		AdminJWTSecret  string        `yaml:"admin_jwt_secret"`
		AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
		AdminAccessTTL  time.Duration `yaml:"admin_access_token_ttl"`
		RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
		BcryptCost      int           `yaml:"bcrypt_cost"`
		ReferralReward  int64         `yaml:"referral_reward"`
	} `yaml:"auth"`

	InitToken struct {
		TTL           time.Duration `yaml:"ttl"`
		SweepInterval time.Duration `yaml:"sweep_interval"`

		// Consecutive primary-store failures before the gate stops trying it.
		BreakerThreshold int           `yaml:"breaker_threshold"`
		BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
	} `yaml:"init_token"`

	Presence struct {
		PingInterval   time.Duration `yaml:"ping_interval"`
		PongTimeout    time.Duration `yaml:"pong_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		SendBuffer     int           `yaml:"send_buffer"`
		MaxMessageSize int64         `yaml:"max_message_size"`
		RelayEnabled   bool          `yaml:"relay_enabled"`
		RelayChannel   string        `yaml:"relay_channel"`
	} `yaml:"presence"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Database
	if c.Database.Enabled {
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must not be empty when database.enabled=true")
		}
		if c.Database.MaxConns <= 0 {
			return fmt.Errorf("database.max_conns must be > 0 when database.enabled=true")
		}
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("database.query_timeout must be > 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AdminJWTSecret == "" {
		return fmt.Errorf("auth.admin_jwt_secret must not be empty")
	}
	if c.Auth.JWTSecret == c.Auth.AdminJWTSecret {
		return fmt.Errorf("auth.admin_jwt_secret must differ from auth.jwt_secret")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}
	if c.Auth.AdminAccessTTL <= 0 {
		return fmt.Errorf("auth.admin_access_token_ttl must be > 0")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth.refresh_token_ttl must be > 0")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}
	if c.Auth.ReferralReward < 0 {
		return fmt.Errorf("auth.referral_reward must be >= 0")
	}

	// Init token
	if c.InitToken.TTL <= 0 {
		return fmt.Errorf("init_token.ttl must be > 0")
	}
	if c.InitToken.SweepInterval <= 0 {
		return fmt.Errorf("init_token.sweep_interval must be > 0")
	}
	if c.InitToken.BreakerThreshold <= 0 {
		return fmt.Errorf("init_token.breaker_threshold must be > 0")
	}
	if c.InitToken.BreakerCooldown <= 0 {
		return fmt.Errorf("init_token.breaker_cooldown must be > 0")
	}

	// Presence
	if c.Presence.PingInterval <= 0 {
		return fmt.Errorf("presence.ping_interval must be > 0")
	}
	if c.Presence.PongTimeout <= c.Presence.PingInterval {
		return fmt.Errorf("presence.pong_timeout must be > presence.ping_interval")
	}
	if c.Presence.WriteTimeout <= 0 {
		return fmt.Errorf("presence.write_timeout must be > 0")
	}
	if c.Presence.SendBuffer <= 0 {
		return fmt.Errorf("presence.send_buffer must be > 0")
	}
	if c.Presence.RelayEnabled {
		if !c.Redis.Enabled {
			return fmt.Errorf("presence.relay_enabled requires redis.enabled=true")
		}
		if c.Presence.RelayChannel == "" {
			return fmt.Errorf("presence.relay_channel must not be empty when relay is enabled")
		}
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
// A missing file yields defaults plus env overrides; the result is validated
// either way so a process never starts without signing secrets.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults. Signing secrets are
// intentionally left empty.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}

	cfg.Database.Enabled = false
	cfg.Database.MaxConns = 10
	cfg.Database.QueryTimeout = 3 * time.Second
	cfg.Database.AutoMigrate = true

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Auth.AccessTokenTTL = 30 * time.Minute
	cfg.Auth.AdminAccessTTL = 60 * time.Minute
	cfg.Auth.RefreshTokenTTL = 7 * 24 * time.Hour // 7 days
	cfg.Auth.BcryptCost = 10
	cfg.Auth.ReferralReward = 100

	cfg.InitToken.TTL = time.Hour
	cfg.InitToken.SweepInterval = 5 * time.Minute
	cfg.InitToken.BreakerThreshold = 5
	cfg.InitToken.BreakerCooldown = 30 * time.Second

	cfg.Presence.PingInterval = 30 * time.Second
	cfg.Presence.PongTimeout = 60 * time.Second
	cfg.Presence.WriteTimeout = 10 * time.Second
	cfg.Presence.SendBuffer = 32
	cfg.Presence.MaxMessageSize = 4 * 1024
	cfg.Presence.RelayEnabled = false
	cfg.Presence.RelayChannel = "arenahub:presence"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	// 100 requests per 15 minutes per IP, as the public API has always allowed.
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.RequestsPerSecond = 100.0 / (15 * 60)
	cfg.RateLimiting.Burst = 100
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() error {
	if addr := os.Getenv("ARENAHUB_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("ARENAHUB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("ARENAHUB_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if secret := os.Getenv("ARENAHUB_ADMIN_JWT_SECRET"); secret != "" {
		c.Auth.AdminJWTSecret = secret
	}
	if dsn := os.Getenv("ARENAHUB_DATABASE_DSN"); dsn != "" {
		c.Database.DSN = dsn
		c.Database.Enabled = true
	}
	if addr := os.Getenv("ARENAHUB_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	if reward := os.Getenv("ARENAHUB_REFERRAL_REWARD"); reward != "" {
		v, err := strconv.ParseInt(reward, 10, 64)
		if err != nil {
			return fmt.Errorf("ARENAHUB_REFERRAL_REWARD: %w", err)
		}
		c.Auth.ReferralReward = v
	}
	return nil
}
