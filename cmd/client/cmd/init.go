package cmd

import (
	"github.com/spf13/cobra"

	"offsync/cmd/client/cmd/common"
	"offsync/cmd/client/cmd/entity"
	"offsync/cmd/client/cmd/outbox"
	"offsync/cmd/client/cmd/sync"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Подготовить локальную базу",
	Long: `Команда init создает локальную базу и запись статуса синхронизации.
Любая другая команда делает то же при первом запуске, поэтому init
нужна только для явной проверки. Повторный запуск ничего не меняет.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.App(cmd)
		if err != nil {
			return err
		}

		status, err := app.Init(cmd.Context())
		if err != nil {
			return err
		}

		if common.JSON() {
			return common.PrintJSON(status)
		}

		common.Success("Локальная база готова")
		common.Printf("Сервер: %s\n", status.ServerURL)
		common.Printf("Ожидают отправки: %d\n", status.PendingChanges)
		common.Printf("Последняя синхронизация: %s\n", common.FormatTime(status.LastSyncAt))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	// Добавляем команды работы с записями
	rootCmd.AddCommand(entity.EntityCmd)
	entity.EntityCmd.AddCommand(entity.PutCmd)
	entity.EntityCmd.AddCommand(entity.GetCmd)
	entity.EntityCmd.AddCommand(entity.ListCmd)
	entity.EntityCmd.AddCommand(entity.DeleteCmd)

	rootCmd.AddCommand(outbox.OutboxCmd)
	outbox.OutboxCmd.AddCommand(outbox.ListCmd)

	rootCmd.AddCommand(sync.SyncCmd)
}
