package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/recompose/pkg/history"
)

var statusStyles = map[history.Status]lipgloss.Style{
	history.StatusCompleted:  lipgloss.NewStyle().Foreground(colorGreen),
	history.StatusFailed:     lipgloss.NewStyle().Foreground(colorRed),
	history.StatusStale:      lipgloss.NewStyle().Foreground(colorYellow),
	history.StatusDispatched: lipgloss.NewStyle().Foreground(colorCyan),
}

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	var (
		producer string
		kind     string
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation calls",
		Long: `List analysis, synthesis and review calls recorded in the local ledger,
newest first. Stale entries were superseded by a newer call for the same slot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := history.Open(c.historyPath())
			if err != nil {
				return err
			}
			defer ledger.Close()

			records, err := ledger.List(cmd.Context(), history.Filter{
				Producer: producer,
				Kind:     history.Kind(kind),
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				printInfo("No generation calls recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&producer, "producer", "", "only calls of this producer")
	cmd.Flags().StringVar(&kind, "kind", "", "only calls of this kind (analysis, synthesis, review)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func renderHistory(records []history.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.CreatedAt.Format("01-02 15:04:05"),
			string(r.Kind),
			r.Producer + "/" + r.Slot,
			string(r.Status),
			r.Duration().Round(time.Millisecond).String(),
			truncate(firstNonEmpty(r.Error, r.Prompt), 48),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("When", "Kind", "Slot", "Status", "Took", "Prompt / Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 3 && row < len(records) {
				if s, ok := statusStyles[records[row].Status]; ok {
					return s
				}
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		}).
		Render()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
