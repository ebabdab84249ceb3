package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rl1809/putaway/internal/core/similarity"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Store      StoreConfig      `mapstructure:"store"`
	MySQL      MySQLConfig      `mapstructure:"mysql"`
	Redis      RedisConfig      `mapstructure:"redis"`
	CSV        CSVConfig        `mapstructure:"csv"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`
}

// StoreConfig selects the DataStore backend and whether the assignment log
// is shared through redis or kept in process.
type StoreConfig struct {
	Backend  string `mapstructure:"backend"`   // csv | mysql
	RedisLog bool   `mapstructure:"redis_log"` // share the assignment log via redis
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CSVConfig struct {
	Dir string `mapstructure:"dir"`
}

type EngineConfig struct {
	Workers     int           `mapstructure:"workers"`
	MaxRetries  int           `mapstructure:"max_retries"`
	UnitTimeout time.Duration `mapstructure:"unit_timeout"`
}

// SimilarityConfig selects the product-affinity relation: "none", "static"
// (table below), or "ratio" (string similarity with threshold).
type SimilarityConfig struct {
	Mode      string              `mapstructure:"mode"`
	Symmetric bool                `mapstructure:"symmetric"`
	Threshold float64             `mapstructure:"threshold"`
	Table     map[string][]string `mapstructure:"table"`
}

// Relation builds the configured similarity relation.
func (c SimilarityConfig) Relation() similarity.Relation {
	switch c.Mode {
	case "static":
		return similarity.NewStatic(c.Table, c.Symmetric)
	case "ratio":
		return similarity.NewRatio(c.Threshold)
	default:
		return similarity.None{}
	}
}

// Load reads config from the given file (optional) with PUTAWAY_* environment
// overrides on top of defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "putaway")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_addr", ":8080")
	v.SetDefault("store.backend", "csv")
	v.SetDefault("store.redis_log", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("csv.dir", "csvs")
	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.max_retries", 3)
	v.SetDefault("engine.unit_timeout", 5*time.Second)
	v.SetDefault("similarity.mode", "ratio")
	v.SetDefault("similarity.symmetric", true)
	v.SetDefault("similarity.threshold", 0.6)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("PUTAWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "csv", "mysql":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Similarity.Mode {
	case "none", "static", "ratio":
	default:
		return fmt.Errorf("unknown similarity mode %q", c.Similarity.Mode)
	}
	if c.Store.Backend == "mysql" && c.MySQL.DSN == "" {
		return fmt.Errorf("mysql backend requires mysql.dsn")
	}
	return nil
}
