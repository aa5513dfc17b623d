package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"offsync/cmd/client/cmd/common"
	"offsync/internal/app/client"
	"offsync/internal/app/client/config"
	sharedConfig "offsync/internal/config"
	"offsync/internal/utils/logger"
)

var (
	cfgFile    string
	debug      bool
	jsonOutput bool
	serverAddr string
	tenantID   string
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "offsync",
	Short: "offsync - локальный узел offline-first синхронизации",
	Long: `offsync хранит записи таблиц каталога в локальной базе SQLite и
работает без сети. Каждое изменение попадает в очередь и отправляется на
сервер при синхронизации, после чего с сервера забираются чужие изменения.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	common.Setup(jsonOutput)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Переопределяем настройки из флагов командной строки
	if serverAddr != "" {
		cfg.ServerAddress = serverAddr
	}
	if tenantID != "" {
		cfg.TenantID = tenantID
	}
	if offline {
		cfg.ForceOffline = true
	}
	if debug {
		cfg.Env = sharedConfig.EnvLocal
	}

	// лог пишется в файл, чтобы не мешать выводу команд
	log, logCloser, err := logger.NewFile(cfg.Env, cfg.LogPath())
	if err != nil {
		return fmt.Errorf("ошибка создания лога: %w", err)
	}

	app, err := client.New(cmd.Context(), cfg, log)
	if err != nil {
		_ = logCloser.Close()
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}
	app.AddCloser(logCloser)

	cmd.SetContext(client.WithApp(cmd.Context(), app))
	return nil
}

func closeApp(cmd *cobra.Command, _ []string) error {
	app, ok := client.FromContext(cmd.Context())
	if !ok {
		return nil
	}
	return app.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "подробный лог")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "адрес сервера (host:port)")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "", "идентификатор арендатора")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "работать без сети")

	// Команды будут добавлены в init() соответствующих файлов
}
