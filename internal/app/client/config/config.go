package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	sharedConfig "offsync/internal/config"
	"offsync/internal/domain/sync"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultDataDir       = ".offsync"
	defaultTenant        = "default"
)

type Config struct {
	Env             string           `mapstructure:"app_env"`
	ServerAddress   string           `mapstructure:"server_address"`
	EnableTLS       bool             `mapstructure:"enable_tls"`
	TenantID        string           `mapstructure:"tenant_id"`
	DataDir         string           `mapstructure:"data_dir"`
	CatalogFile     string           `mapstructure:"catalog_file"`
	SyncInterval    time.Duration    `mapstructure:"-"`
	ProbeInterval   time.Duration    `mapstructure:"-"`
	CallTimeout     time.Duration    `mapstructure:"-"`
	PushWorkers     int              `mapstructure:"push_workers"`
	PendingMode     sync.PendingMode `mapstructure:"pending_mode"`
	ReverseDeletes  bool             `mapstructure:"reverse_deletes"`
	StringComposite bool             `mapstructure:"string_composite"`
	ForceOffline    bool             `mapstructure:"force_offline"`
}

// MustLoad загружает конфигурацию клиента из окружения
func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает окружение и, если путь задан, YAML файл. Переменные окружения
// важнее файла.
func Load(path string) (*Config, error) {
	sharedConfig.LoadDotEnv(".env", "../.env")

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
	}

	cfg, err := load(v)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("ошибка создания директории данных: %w", err)
	}
	return cfg, nil
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", sharedConfig.EnvLocal)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("TENANT_ID", defaultTenant)
	v.SetDefault("DATA_DIR", defaultDataDir)
	v.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	v.SetDefault("PROBE_INTERVAL_SECONDS", 10)
	v.SetDefault("CALL_TIMEOUT_SECONDS", 30)
	v.SetDefault("PUSH_WORKERS", 1)
	v.SetDefault("PENDING_MODE", string(sync.PendingRun))
	v.SetDefault("REVERSE_DELETES", true)
	v.SetDefault("STRING_COMPOSITE", true)
	v.SetDefault("FORCE_OFFLINE", false)

	// относительный каталог данных по умолчанию лежит в домашней директории
	dataDir := v.GetString("DATA_DIR")
	if dataDir == defaultDataDir {
		if home, err := os.UserHomeDir(); err == nil {
			dataDir = filepath.Join(home, dataDir)
		}
	}

	cfg := &Config{
		Env:             v.GetString("APP_ENV"),
		ServerAddress:   v.GetString("SERVER_ADDRESS"),
		EnableTLS:       v.GetBool("ENABLE_TLS"),
		TenantID:        v.GetString("TENANT_ID"),
		DataDir:         dataDir,
		CatalogFile:     v.GetString("CATALOG_FILE"),
		SyncInterval:    time.Duration(v.GetInt("SYNC_INTERVAL_SECONDS")) * time.Second,
		ProbeInterval:   time.Duration(v.GetInt("PROBE_INTERVAL_SECONDS")) * time.Second,
		CallTimeout:     time.Duration(v.GetInt("CALL_TIMEOUT_SECONDS")) * time.Second,
		PushWorkers:     v.GetInt("PUSH_WORKERS"),
		PendingMode:     sync.PendingMode(v.GetString("PENDING_MODE")),
		ReverseDeletes:  v.GetBool("REVERSE_DELETES"),
		StringComposite: v.GetBool("STRING_COMPOSITE"),
		ForceOffline:    v.GetBool("FORCE_OFFLINE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir не может быть пустым")
	}
	if c.PendingMode != sync.PendingRun && c.PendingMode != sync.PendingRecount {
		return fmt.Errorf("pending_mode должен быть %q или %q", sync.PendingRun, sync.PendingRecount)
	}
	if c.SyncInterval <= 0 || c.ProbeInterval <= 0 {
		return fmt.Errorf("интервалы синхронизации и проверки сети должны быть положительными")
	}
	return nil
}

// ServerURL адрес сервера со схемой
func (c *Config) ServerURL() string {
	if c.EnableTLS {
		return "https://" + c.ServerAddress
	}
	return "http://" + c.ServerAddress
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "offsync.db")
}

func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "client.log")
}

// SyncConfig настройки движка синхронизации
func (c *Config) SyncConfig() *sync.Config {
	return &sync.Config{
		Workers:          c.PushWorkers,
		CallTimeout:      c.CallTimeout,
		PendingMode:      c.PendingMode,
		ReverseDeletes:   c.ReverseDeletes,
		DefaultServerURL: c.ServerURL(),
	}
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == sharedConfig.EnvProd
}
