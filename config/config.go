// Package config carrega a configuração do gateway com viper: arquivo YAML
// opcional, defaults para todas as chaves e override por variáveis PAPERLY_*.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"paperly-gateway/logging"
	"paperly-gateway/middleware/monitoring"
	"paperly-gateway/middleware/ratelimit/domain"

	"github.com/spf13/viper"
)

const EnvPrefix = "PAPERLY"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         logging.Config    `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
	Fitness     FitnessConfig     `mapstructure:"fitness"`
}

type ServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Seed   bool   `mapstructure:"seed"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type CacheConfig struct {
	DefaultTTL         time.Duration `mapstructure:"default_ttl"`
	SearchTTL          time.Duration `mapstructure:"search_ttl"`
	PaperTTL           time.Duration `mapstructure:"paper_ttl"`
	RecommendationsTTL time.Duration `mapstructure:"recommendations_ttl"`
}

type TierConfig struct {
	Quota  int           `mapstructure:"quota"`
	Period time.Duration `mapstructure:"period"`
}

type RateLimitConfig struct {
	Enabled   bool                  `mapstructure:"enabled"`
	Algorithm string                `mapstructure:"algorithm"`
	KeyHeader string                `mapstructure:"key_header"`
	TrustXFF  bool                  `mapstructure:"trust_xff"`
	Tiers     map[string]TierConfig `mapstructure:"tiers"`
	Stats     StatsConfig           `mapstructure:"stats"`
}

type StatsConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
	Bucket        string        `mapstructure:"bucket"`
	TrackKeys     bool          `mapstructure:"track_keys"`
}

type ConcurrencyConfig struct {
	Max            int           `mapstructure:"max"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

type FitnessConfig struct {
	Rules []monitoring.Rule `mapstructure:"rules"`
}

const (
	AlgorithmFixedWindow = "fixed_window"
	AlgorithmTokenBucket = "token_bucket"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":3000")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "paperly.db")
	v.SetDefault("database.seed", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 30*time.Minute)

	v.SetDefault("cache.default_ttl", 300*time.Second)
	v.SetDefault("cache.search_ttl", 300*time.Second)
	v.SetDefault("cache.paper_ttl", 300*time.Second)
	v.SetDefault("cache.recommendations_ttl", 600*time.Second)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.algorithm", AlgorithmFixedWindow)
	v.SetDefault("ratelimit.key_header", "")
	v.SetDefault("ratelimit.trust_xff", false)
	for tier, limit := range domain.DefaultTiers() {
		v.SetDefault("ratelimit.tiers."+string(tier)+".quota", limit.Quota)
		v.SetDefault("ratelimit.tiers."+string(tier)+".period", limit.Period)
	}
	v.SetDefault("ratelimit.stats.enabled", false)
	v.SetDefault("ratelimit.stats.redis_addr", "")
	v.SetDefault("ratelimit.stats.redis_password", "")
	v.SetDefault("ratelimit.stats.redis_db", 0)
	v.SetDefault("ratelimit.stats.prefix", "paperly:ratelimit")
	v.SetDefault("ratelimit.stats.ttl", 24*time.Hour)
	v.SetDefault("ratelimit.stats.bucket", "minute")
	v.SetDefault("ratelimit.stats.track_keys", false)

	v.SetDefault("concurrency.max", 100)
	v.SetDefault("concurrency.acquire_timeout", time.Duration(0))
}

// Load lê a configuração. path vazio usa CONFIG_PATH ou procura config.yaml
// em . e ./config; a ausência do arquivo nesse caso não é erro.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Fitness.Rules) == 0 {
		cfg.Fitness.Rules = monitoring.DefaultRules()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		return errors.New("server.listen_addr is required")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be > 0")
	}
	switch c.RateLimit.Algorithm {
	case AlgorithmFixedWindow, AlgorithmTokenBucket:
	default:
		return fmt.Errorf("ratelimit.algorithm must be %s or %s, got %q",
			AlgorithmFixedWindow, AlgorithmTokenBucket, c.RateLimit.Algorithm)
	}
	if _, err := c.RateLimit.DomainTiers(); err != nil {
		return err
	}
	if c.RateLimit.Stats.Enabled && strings.TrimSpace(c.RateLimit.Stats.RedisAddr) == "" {
		return errors.New("ratelimit.stats.redis_addr is required when ratelimit.stats.enabled=true")
	}
	if c.Concurrency.Max < 0 {
		return errors.New("concurrency.max must be >= 0")
	}
	for i, r := range c.Fitness.Rules {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("fitness.rules[%d].name is required", i)
		}
		if r.Threshold <= 0 {
			return fmt.Errorf("fitness.rules[%d].threshold must be > 0", i)
		}
	}
	return nil
}

// DomainTiers converte a seção ratelimit.tiers, rejeitando tiers
// desconhecidos ou faltando.
func (r RateLimitConfig) DomainTiers() (domain.Tiers, error) {
	tiers := make(domain.Tiers, len(r.Tiers))
	for name, tc := range r.Tiers {
		tier, err := domain.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("ratelimit.tiers: %w", err)
		}
		tiers[tier] = domain.TierLimit{Quota: tc.Quota, Period: tc.Period}
	}
	if err := tiers.Validate(); err != nil {
		return nil, fmt.Errorf("ratelimit.tiers: %w", err)
	}
	return tiers, nil
}
