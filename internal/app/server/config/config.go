package config

import (
	"time"

	"github.com/spf13/viper"

	"offsync/internal/config"
)

type Config struct {
	Env         string
	CatalogFile string
	DB          db
	Server      server
	Logger      logger
	RateLimit   rateLimit
	Sync        syncConfig
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type rateLimit struct {
	RPS   float64 `env:"RATE_LIMIT_RPS"`
	Burst int     `env:"RATE_LIMIT_BURST"`
}

type syncConfig struct {
	CursorLag time.Duration `env:"PULL_CURSOR_LAG"`
}

// MustLoad загружает конфигурацию сервера из окружения и .env
func MustLoad() *Config {
	config.LoadDotEnv(".env", "../../.env")
	return load(viper.New())
}

func load(v *viper.Viper) *Config {
	v.AutomaticEnv()
	v.SetDefault("app_env", config.EnvLocal)
	v.SetDefault("run_address", ":8080")
	v.SetDefault("migrations_path", "migrations")
	v.SetDefault("log_level", "info")
	v.SetDefault("rate_limit_rps", 50)
	v.SetDefault("rate_limit_burst", 100)
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("pull_cursor_lag", "10s")

	return &Config{
		Env:         v.GetString("app_env"),
		CatalogFile: v.GetString("catalog_file"),
		DB: db{
			DatabaseURI: v.GetString("database_uri"),
			Migrations:  v.GetString("migrations_path"),
		},
		Server: server{
			RunAddress:      v.GetString("run_address"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		},
		Logger: logger{LogLevel: v.GetString("log_level")},
		RateLimit: rateLimit{
			RPS:   v.GetFloat64("rate_limit_rps"),
			Burst: v.GetInt("rate_limit_burst"),
		},
		Sync: syncConfig{CursorLag: v.GetDuration("pull_cursor_lag")},
	}
}
