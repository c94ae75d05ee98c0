package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/store"
)

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade journal",
		Long:  "Review past trading sessions recorded in the journal.",
	}

	var (
		symbol string
		status string
		limit  int
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Journal == nil {
				return apperrors.Wrap(apperrors.ErrDatabaseError, "journal unavailable")
			}

			records, err := app.Journal.Sessions(cmd.Context(), store.SessionFilter{
				Symbol: symbol,
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(records)
			}
			if len(records) == 0 {
				output.Dim("No sessions recorded.")
				return nil
			}

			table := NewTable(output, "Opened", "Symbol", "Contract", "Qty", "Entry", "Exit", "PnL", "Status")
			for _, r := range records {
				table.AddRow(
					r.OpenedAt.Format("2006-01-02 15:04"),
					r.Symbol,
					r.Contract,
					fmt.Sprintf("%d", r.Quantity),
					fmt.Sprintf("%.2f", r.EntryPrice),
					fmt.Sprintf("%.2f", r.ExitPrice),
					output.FormatPnL(r.PnL),
					r.Status,
				)
			}
			table.Render()
			return nil
		},
	}
	listCmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	listCmd.Flags().StringVar(&status, "status", "", "filter by session status")
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Aggregate journal statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Journal == nil {
				return apperrors.Wrap(apperrors.ErrDatabaseError, "journal unavailable")
			}

			stats, err := app.Journal.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(stats)
			}

			output.Info("Sessions:  %d", stats.Sessions)
			output.Info("Closed:    %d", stats.Closed)
			if stats.Closed > 0 {
				output.Info("Win rate:  %.1f%%", float64(stats.Wins)/float64(stats.Closed)*100)
			}
			output.Printf("Total PnL: %s\n", output.FormatPnL(stats.TotalPnL))
			return nil
		},
	})

	return cmd
}
