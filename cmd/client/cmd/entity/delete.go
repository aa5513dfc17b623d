package entity

import (
	"fmt"

	"github.com/spf13/cobra"

	"offsync/cmd/client/cmd/common"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete <table> <id>",
	Short: "Удалить запись",
	Long:  `Удаляет запись локально и ставит удаление в очередь на отправку.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.App(cmd)
		if err != nil {
			return err
		}

		rec, err := app.Delete(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("ошибка удаления записи: %w", err)
		}

		if common.JSON() {
			return common.PrintJSON(rec)
		}
		common.Success("Запись %s/%s удалена, ожидает синхронизации", rec.TableName, rec.RecordID)
		return nil
	},
}
