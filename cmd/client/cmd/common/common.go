// Package common общие помощники команд клиента: доступ к приложению и вывод.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"offsync/internal/app/client"
)

var (
	jsonOutput bool
	out        io.Writer = os.Stdout
)

// Setup настраивает вывод: JSON по флагу, цвет только в терминале
func Setup(asJSON bool) {
	jsonOutput = asJSON
	if asJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

func JSON() bool {
	return jsonOutput
}

// App приложение, созданное в PersistentPreRunE корневой команды
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := client.FromContext(cmd.Context())
	if !ok {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}

func PrintJSON(v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func Success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(out, "✓ "+format+"\n", args...)
}

func Warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(out, "⚠ "+format+"\n", args...)
}

func Fail(format string, args ...any) {
	color.New(color.FgRed).Fprintf(out, "✗ "+format+"\n", args...)
}

func Println(a ...any) {
	fmt.Fprintln(out, a...)
}

func Printf(format string, args ...any) {
	fmt.Fprintf(out, format, args...)
}

// Table табличный вывод; вызывающий обязан сделать Flush
func Table() *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

// FormatTime время в локальной зоне или прочерк
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func Truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
