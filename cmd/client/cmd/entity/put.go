package entity

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"offsync/cmd/client/cmd/common"
	"offsync/internal/model"
)

var (
	putData string
	putFile string
)

var PutCmd = &cobra.Command{
	Use:   "put <table> [id]",
	Short: "Создать или обновить запись",
	Long: `Сохраняет запись локально и ставит изменение в очередь.

Данные передаются JSON объектом через --data, --file или стандартный ввод
(--file -). Если id не указан ни аргументом, ни в данных, создается новый uuid.`,
	Example: `  offsync entity put User --data '{"name":"Ann","preferences":{"theme":"dark"}}'
  offsync entity put User 42 --file user.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.App(cmd)
		if err != nil {
			return err
		}

		data, err := readData(cmd.InOrStdin())
		if err != nil {
			return err
		}

		var id string
		if len(args) == 2 {
			id = args[1]
		}

		rec, err := app.Put(cmd.Context(), args[0], id, data)
		if err != nil {
			return fmt.Errorf("ошибка сохранения записи: %w", err)
		}

		if common.JSON() {
			return common.PrintJSON(rec)
		}
		common.Success("Запись %s/%s сохранена (%s), ожидает синхронизации", rec.TableName, rec.RecordID, rec.Action)
		return nil
	},
}

func readData(stdin io.Reader) (model.Entity, error) {
	var raw []byte
	switch {
	case putData != "":
		raw = []byte(putData)
	case putFile == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения стандартного ввода: %w", err)
		}
		raw = b
	case putFile != "":
		b, err := os.ReadFile(putFile)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения файла: %w", err)
		}
		raw = b
	default:
		return model.Entity{}, nil
	}

	var data model.Entity
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("данные должны быть JSON объектом: %w", err)
	}
	if data == nil {
		data = model.Entity{}
	}
	return data, nil
}

func init() {
	PutCmd.Flags().StringVarP(&putData, "data", "d", "", "данные записи (JSON объект)")
	PutCmd.Flags().StringVarP(&putFile, "file", "f", "", "файл с данными записи, - для стандартного ввода")
}
