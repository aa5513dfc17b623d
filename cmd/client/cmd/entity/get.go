package entity

import (
	"github.com/spf13/cobra"

	"offsync/cmd/client/cmd/common"
)

var GetCmd = &cobra.Command{
	Use:   "get <table> <id>",
	Short: "Показать запись",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.App(cmd)
		if err != nil {
			return err
		}

		e, err := app.Get(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if !common.JSON() {
			state := "синхронизирована"
			if e.NeedsSync {
				state = "ожидает синхронизации"
			}
			common.Printf("%s/%s: %s, последняя синхронизация %s\n",
				e.Table, e.Data.ID(), state, common.FormatTime(e.LastSynced))
		}
		return common.PrintJSON(e.Data)
	},
}
