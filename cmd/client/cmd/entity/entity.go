package entity

import (
	"github.com/spf13/cobra"
)

// EntityCmd - родительская команда для операций с записями таблиц
var EntityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Управление записями таблиц",
	Long: `Создание, просмотр, обновление и удаление записей таблиц каталога.
Изменения сохраняются локально и ставятся в очередь на отправку.`,
}
