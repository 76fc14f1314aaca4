package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Mode        string        `mapstructure:"mode"`
	Port        int           `mapstructure:"port"`
	LogLevel    string        `mapstructure:"log_level"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	Secret      string        `mapstructure:"secret"`
	DatabaseURL string        `mapstructure:"database_url"`

	// AllowedOrigins may open the websocket; empty means same host only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	Auth    AuthConfig    `mapstructure:"auth"`
	Storage StorageConfig `mapstructure:"storage"`
	Fanout  FanoutConfig  `mapstructure:"fanout"`
	Rooms   RoomsConfig   `mapstructure:"rooms"`
	Rate    RateConfig    `mapstructure:"rate"`
	Media   MediaConfig   `mapstructure:"media"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type FanoutConfig struct {
	Driver   string `mapstructure:"driver"`
	RedisURL string `mapstructure:"redis_url"`
	NatsURL  string `mapstructure:"nats_url"`
	Prefix   string `mapstructure:"prefix"`
}

type RoomsConfig struct {
	MaxParticipants int           `mapstructure:"max_participants"`
	GracePeriod     time.Duration `mapstructure:"grace_period"`
}

type RateConfig struct {
	Events       int           `mapstructure:"events"`
	EventsWindow time.Duration `mapstructure:"events_window"`
	Chat         int           `mapstructure:"chat"`
	ChatWindow   time.Duration `mapstructure:"chat_window"`
}

type MediaConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	APISecret  string        `mapstructure:"api_secret"`
	GrantTTL   time.Duration `mapstructure:"grant_ttl"`
	ICEServers []string      `mapstructure:"ice_servers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("database_url", "")

	v.SetDefault("auth.jwt_secret", "dev-secret")
	v.SetDefault("storage.driver", "memory")

	v.SetDefault("fanout.driver", "local")
	v.SetDefault("fanout.redis_url", "")
	v.SetDefault("fanout.nats_url", "")
	v.SetDefault("fanout.prefix", "voicerooms")

	v.SetDefault("rooms.max_participants", 50)
	v.SetDefault("rooms.grace_period", "30s")

	v.SetDefault("rate.events", 30)
	v.SetDefault("rate.events_window", "10s")
	v.SetDefault("rate.chat", 5)
	v.SetDefault("rate.chat_window", "2s")

	v.SetDefault("media.url", "")
	v.SetDefault("media.api_key", "devkey")
	v.SetDefault("media.api_secret", "devsecret")
	v.SetDefault("media.grant_ttl", "6h")
	v.SetDefault("media.ice_servers", []string{"stun:stun.l.google.com:19302"})
}

// Load reads config/config.<CONFIG_ENV>.yaml, then VOICE_* environment
// overrides. A .env file in the working directory is loaded first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Storage: %s | Fanout: %s\n", cfg.Mode, cfg.Port, cfg.Storage.Driver, cfg.Fanout.Driver)
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("storage.driver=postgres requires database_url")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Fanout.Driver {
	case "local", "redis", "nats":
	default:
		return fmt.Errorf("unknown fanout.driver %q", c.Fanout.Driver)
	}
	if c.Rooms.MaxParticipants <= 0 {
		return fmt.Errorf("rooms.max_participants must be positive")
	}
	if c.Rate.Events <= 0 || c.Rate.Chat <= 0 || c.Rate.EventsWindow <= 0 || c.Rate.ChatWindow <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}
