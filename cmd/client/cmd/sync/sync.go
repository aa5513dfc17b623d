package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"offsync/cmd/client/cmd/common"
	"offsync/internal/app/client"
	engine "offsync/internal/domain/sync"
)

var (
	syncStatus bool
	watch      bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с сервером",
	Long: `Отправляет очередь изменений на сервер, затем забирает изменения с сервера.

--status показывает статус без синхронизации, --watch синхронизирует по
расписанию и при восстановлении сети до прерывания (Ctrl+C).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.App(cmd)
		if err != nil {
			return err
		}

		if syncStatus {
			return showSyncStatus(cmd.Context(), app)
		}

		if watch {
			return runWatch(cmd.Context(), app)
		}

		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	start := time.Now()

	result, err := app.SyncNow(ctx)
	if errors.Is(err, engine.ErrSyncInProgress) {
		return fmt.Errorf("синхронизация уже выполняется")
	}
	if err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	if common.JSON() {
		return common.PrintJSON(result)
	}

	printResult(result, time.Since(start))
	if !result.Success() {
		return fmt.Errorf("синхронизация завершилась с ошибками")
	}
	return nil
}

func runWatch(ctx context.Context, app *client.App) error {
	common.Println("Автоматическая синхронизация запущена, Ctrl+C для остановки")

	app.Watch(ctx, func(result engine.FullResult) {
		if common.JSON() {
			_ = common.PrintJSON(result)
			return
		}
		common.Printf("\n[%s]\n", time.Now().Format("15:04:05"))
		printResult(result, 0)
	})

	common.Println("Синхронизация остановлена")
	return nil
}

func printResult(result engine.FullResult, duration time.Duration) {
	if result.Success() {
		common.Success("Синхронизация завершена")
	} else {
		common.Warn("Синхронизация завершена с ошибками")
	}
	if duration > 0 {
		common.Printf("Время выполнения: %v\n", duration.Round(time.Millisecond))
	}
	common.Printf("Отправлено на сервер: %d, ошибок: %d\n", result.Push.Synced, result.Push.Failed)
	common.Printf("Получено с сервера: %d (удалено %d), ошибок: %d\n",
		result.Pull.Synced, result.Pull.Deleted, result.Pull.Failed)

	errs := append(append([]string{}, result.Push.Errors...), result.Pull.Errors...)
	for i, e := range errs {
		// Показываем только первые 3 ошибки
		if i == 3 {
			common.Printf("  ... и еще %d ошибок\n", len(errs)-3)
			break
		}
		common.Fail("%s", e)
	}
}

func showSyncStatus(ctx context.Context, app *client.App) error {
	status, err := app.Status(ctx)
	if err != nil {
		return err
	}

	if common.JSON() {
		return common.PrintJSON(status)
	}

	common.Println("=== Статус синхронизации ===")
	common.Printf("Сервер: %s\n", status.ServerURL)
	common.Printf("Последняя синхронизация: %s\n", common.FormatTime(status.LastSyncAt))
	if status.LastSyncSuccess {
		common.Success("Последняя синхронизация успешна")
	} else {
		common.Warn("Последняя синхронизация не удалась или еще не выполнялась")
	}
	common.Printf("Ожидают отправки: %d\n", status.PendingChanges)
	common.Printf("Курсор выгрузки: %s\n", common.FormatTime(status.LastPullAt))
	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.Flags().BoolVarP(&watch, "watch", "w", false, "синхронизировать по расписанию до прерывания")
}
