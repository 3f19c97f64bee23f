package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	xerrors "moms-kitchen/internal/xpkg/errors"
)

const envPrefix = "RESTAURANT"

type Config struct {
	Store         Store         `mapstructure:"store"`
	Feed          Feed          `mapstructure:"feed"`
	RMQ           RabbitMQ      `mapstructure:"rabbitmq"`
	Redis         Redis         `mapstructure:"redis"`
	Sync          Sync          `mapstructure:"sync"`
	Notifications Notifications `mapstructure:"notifications"`
	Menu          Menu          `mapstructure:"menu"`
	Restaurant    Restaurant    `mapstructure:"restaurant"`
	Log           Log           `mapstructure:"log"`
}

// Store holds the two connection parameters of the remote store. URL is a
// postgres connection string, Key is the access key sent as the password.
type Store struct {
	URL      string        `mapstructure:"url"`
	Key      string        `mapstructure:"key"`
	MaxConns int32         `mapstructure:"max_conns"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Feed struct {
	// Driver is one of postgres, rabbitmq, redis or none.
	Driver string `mapstructure:"driver"`
}

type RabbitMQ struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	VHost    string `mapstructure:"vhost"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type Sync struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PatchUpdates bool          `mapstructure:"patch_updates"`
}

type Notifications struct {
	Enabled bool `mapstructure:"enabled"`
}

type Menu struct {
	SeedFile string `mapstructure:"seed_file"`
}

type Restaurant struct {
	Name     string `mapstructure:"name"`
	LogoText string `mapstructure:"logo_text"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads configPath (when it exists) and overlays RESTAURANT_* environment
// variables, e.g. RESTAURANT_STORE_URL and RESTAURANT_STORE_KEY.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.url", "")
	v.SetDefault("store.key", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.timeout", 10*time.Second)

	v.SetDefault("feed.driver", "postgres")

	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", "5672")
	v.SetDefault("rabbitmq.vhost", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("sync.poll_interval", 5*time.Second)
	v.SetDefault("sync.patch_updates", false)

	v.SetDefault("notifications.enabled", false)

	v.SetDefault("menu.seed_file", "")

	v.SetDefault("restaurant.name", "Mom's Kitchen Restaurant")
	v.SetDefault("restaurant.logo_text", "MK")

	v.SetDefault("log.level", "info")
}

// Validate reports ErrStoreNotConfigured when either store parameter is missing.
// Callers treat it as a warning and continue in degraded mode.
func (s Store) Validate() error {
	if strings.TrimSpace(s.URL) == "" || strings.TrimSpace(s.Key) == "" {
		return xerrors.ErrStoreNotConfigured
	}
	return nil
}

// URL returns the amqp connection string.
func (r RabbitMQ) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s", r.User, r.Password, r.Host, r.Port, r.VHost)
}
