package logger

import (
	"io"
	"os"
	"path/filepath"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"

	"offsync/internal/config"
	"offsync/internal/utils/logger/handlers/slogpretty"
)

// New создает логгер процесса для окружения: local цветной DEBUG,
// dev JSON DEBUG, prod JSON INFO. Неизвестное окружение считается prod.
func New(env string) *slog.Logger {
	return newFor(env, os.Stdout)
}

func newFor(env string, out io.Writer) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return setupPrettySlogTo(out)
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

func setupPrettySlog() *slog.Logger {
	return setupPrettySlogTo(os.Stdout)
}

func setupPrettySlogTo(out io.Writer) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
	}
	return slog.New(opts.NewPrettyHandler(out))
}

// NewFile пишет JSON лог в файл с ротацией, чтобы не смешивать его с выводом CLI
func NewFile(env, path string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	level := slog.LevelInfo
	if env == config.EnvLocal || env == config.EnvDev {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), w, nil
}
