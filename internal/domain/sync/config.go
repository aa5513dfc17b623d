package sync

import "time"

// Config настройки движка синхронизации
type Config struct {
	// Workers число параллельных push-запросов; записи одного ключа всегда идут последовательно
	Workers int
	// CallTimeout ограничение на каждый сетевой вызов
	CallTimeout time.Duration
	PendingMode PendingMode
	// ReverseDeletes применяет удаления после upsert-ов в обратном порядке каталога
	ReverseDeletes   bool
	DefaultServerURL string
}

func DefaultConfig() *Config {
	return &Config{
		Workers:        1,
		CallTimeout:    30 * time.Second,
		PendingMode:    PendingRun,
		ReverseDeletes: true,
	}
}

func (c *Config) normalize() {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.PendingMode == "" {
		c.PendingMode = PendingRun
	}
}
