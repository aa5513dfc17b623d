package entity

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"offsync/cmd/client/cmd/common"
	"offsync/internal/model"
)

var ListCmd = &cobra.Command{
	Use:   "list <table>",
	Short: "Список записей таблицы",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.App(cmd)
		if err != nil {
			return err
		}

		entities, err := app.List(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ошибка получения списка записей: %w", err)
		}

		if common.JSON() {
			rows := make([]model.Entity, len(entities))
			for i, e := range entities {
				rows[i] = e.Data
			}
			return common.PrintJSON(rows)
		}

		if len(entities) == 0 {
			common.Println("Записи не найдены")
			return nil
		}

		w := common.Table()
		fmt.Fprintf(w, "ID\tСинхр.\tОбновлено\tДанные\t\n")
		for _, e := range entities {
			state := "да"
			if e.NeedsSync {
				state = "нет"
			}
			data, _ := json.Marshal(e.Data.Without(model.FieldID))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				e.Data.ID(),
				state,
				common.FormatTime(&e.UpdatedAt),
				common.Truncate(string(data), 60),
			)
		}
		w.Flush()

		common.Printf("\nВсего записей: %d\n", len(entities))
		return nil
	},
}
