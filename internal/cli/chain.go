package cli

import (
	"github.com/spf13/cobra"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/gateway"
	"options-trader/internal/models"
	"options-trader/internal/scoring"
)

func newChainCmd(app *App) *cobra.Command {
	var right string

	cmd := &cobra.Command{
		Use:   "chain <symbol>",
		Short: "Score the option chain for a symbol",
		Long: `Fetch the out-of-the-money chain for a symbol, score it, and print
the ranked table without starting a session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := args[0]

			optRight := models.OptionRight(right)
			if !optRight.Valid() {
				output.Error("Invalid right %q (must be CALL or PUT)", right)
				return apperrors.NewValidationError("right", right, "must be CALL or PUT")
			}

			var gw gateway.Gateway
			if app.Config.IsLiveMode() {
				gw = gateway.NewTradierGateway(gateway.TradierConfig{
					BaseURL:   app.Config.Gateway.BaseURL,
					APIKey:    app.Config.Gateway.APIKey,
					AccountID: app.Config.Gateway.AccountID,
				})
			} else {
				pg := gateway.NewPaperGateway()
				pg.SeedSynthetic(symbol, 100)
				gw = pg
				output.Warning("Paper mode: showing synthetic chain data")
			}

			ctx := cmd.Context()
			if err := gw.Connect(ctx); err != nil {
				return err
			}
			defer gw.Disconnect()

			quote, err := gw.Quote(ctx, symbol)
			if err != nil {
				return err
			}
			output.Info("%s spot: %.2f", symbol, quote.Last)

			candidates, err := scoring.BuildCandidates(ctx, gw, symbol, optRight, quote.Last, scoring.ChainOptions{
				StrikeWindowPercent: app.Config.Chain.StrikeWindowPercent,
				MaxStrikes:          app.Config.Chain.MaxStrikes,
			})
			if err != nil {
				return err
			}

			result := scoring.Score(candidates)
			if output.IsJSON() {
				return output.JSON(result)
			}
			renderChain(output, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&right, "right", "CALL", "option right: CALL or PUT")

	return cmd
}
