package outbox

import (
	"fmt"

	"github.com/spf13/cobra"

	"offsync/cmd/client/cmd/common"
)

var (
	showAll bool
	limit   int
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Изменения в очереди",
	Long: `Показывает неотправленные изменения в порядке создания.
С флагом --all показываются и уже отправленные.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.App(cmd)
		if err != nil {
			return err
		}

		records, err := app.Outbox(cmd.Context(), showAll, limit)
		if err != nil {
			return fmt.Errorf("ошибка чтения очереди: %w", err)
		}

		if common.JSON() {
			return common.PrintJSON(records)
		}

		if len(records) == 0 {
			common.Println("Очередь пуста")
			return nil
		}

		w := common.Table()
		fmt.Fprintf(w, "Seq\tТаблица\tID записи\tДействие\tСоздано\tОтправлено\tПопыток\tОшибка\t\n")
		for _, rec := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t\n",
				rec.Seq,
				rec.TableName,
				rec.RecordID,
				rec.Action,
				common.FormatTime(&rec.CreatedAt),
				common.FormatTime(rec.SyncedAt),
				rec.Retries,
				common.Truncate(rec.LastError, 40),
			)
		}
		w.Flush()

		common.Printf("\nВсего: %d\n", len(records))
		return nil
	},
}

func init() {
	ListCmd.Flags().BoolVar(&showAll, "all", false, "включая отправленные")
	ListCmd.Flags().IntVar(&limit, "limit", 0, "ограничение количества записей (0 - без ограничения)")
}
