package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// outputFormat returns the effective output format. Without an explicit
// choice, a terminal gets tables and a pipe gets JSON.
func outputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	if v != "" {
		return v
	}
	if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "table"
	}
	return "json"
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTable writes rows under upper-cased column headers, separated by
// two spaces.
func PrintTable(w io.Writer, columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i := range columns {
			if i < len(row) && len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	writeRow := func(cells []string, upper bool) {
		parts := make([]string, len(columns))
		for i := range columns {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			if upper {
				cell = strings.ToUpper(cell)
			}
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	writeRow(columns, true)
	for _, row := range rows {
		writeRow(row, false)
	}
}

// render prints rows as a table or, for JSON, the records themselves.
func render(cmd *cobra.Command, records interface{}, columns []string, rows [][]string) error {
	if outputFormat(cmd) == "json" {
		return PrintJSON(cmd.OutOrStdout(), records)
	}
	PrintTable(cmd.OutOrStdout(), columns, rows)
	return nil
}

// done reports a completed mutation.
func done(cmd *cobra.Command, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if outputFormat(cmd) == "json" {
		return PrintJSON(cmd.OutOrStdout(), map[string]string{"result": msg})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), msg)
	return err
}
