package outbox

import (
	"github.com/spf13/cobra"
)

// OutboxCmd - очередь исходящих изменений
var OutboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Очередь исходящих изменений",
}
