package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"options-trader/internal/config"
	"options-trader/internal/gateway"
	"options-trader/internal/logging"
	"options-trader/internal/models"
	"options-trader/internal/monitor"
	"options-trader/internal/scoring"
	"options-trader/internal/selector"
	"options-trader/pkg/utils"
)

func newTradeCmd(app *App) *cobra.Command {
	var (
		symbol     string
		capital    float64
		right      string
		timeframe  string
		entryLevel float64
		takeProfit float64
		stopLoss   float64
		paper      bool
	)

	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Run one trading session",
		Long: `Run one full trading session: wait for the entry level to break,
score the option chain, pick a contract, and work the position to
take-profit or stop-loss.

Parameters not given as flags are prompted for interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			prompter := NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

			req, err := collectRequest(prompter, symbol, capital, right, timeframe, entryLevel, takeProfit, stopLoss)
			if err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				output.Error("Invalid trade parameters: %v", err)
				app.ExitCode = 2
				return err
			}

			if paper {
				app.Config.Trading.Mode = "paper"
			}

			gw, err := buildGateway(app.Config, req)
			if err != nil {
				app.ExitCode = 1
				return err
			}
			if app.Config.IsPaperMode() {
				output.Warning("Paper mode: orders are simulated")
			} else if !utils.IsMarketOpen(time.Now()) {
				output.Warning("Market is %s; orders may not fill until the next session", utils.GetMarketStatus(time.Now()))
			}

			logCfg := sessionLogConfig(app.Config)
			sessionLog := logging.NewSessionLogger(logCfg, req.Symbol)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := &monitor.Session{
				Gateway: gw,
				Chooser: selector.New(cmd.InOrStdin(), cmd.OutOrStdout()),
				Journal: journalOrNil(app),
				Chain: scoring.ChainOptions{
					StrikeWindowPercent: app.Config.Chain.StrikeWindowPercent,
					MaxStrikes:          app.Config.Chain.MaxStrikes,
				},
				Monitor: monitor.Config{
					PollInterval:    app.Config.Trading.PollInterval,
					OrderSettle:     app.Config.Trading.OrderSettle,
					QuoteSettle:     app.Config.Trading.QuoteSettle,
					EntryBudget:     app.Config.Trading.MaxEntryAttempts,
					ExitBudget:      app.Config.Trading.MaxExitAttempts,
					HistoryDuration: app.Config.Trading.HistoryDuration,
				},
				Present: func(result models.ScoreResult) {
					renderChain(output, result)
				},
				Log: sessionLog,
			}

			result := session.Run(ctx, req)
			renderResult(output, result)
			app.ExitCode = result.Status.ExitCode()
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "underlying symbol, e.g. AAPL")
	cmd.Flags().Float64Var(&capital, "capital", 0, "capital to deploy")
	cmd.Flags().StringVar(&right, "right", "", "option right: CALL or PUT")
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "candle granularity: 1min, 5min, 15min, daily")
	cmd.Flags().Float64Var(&entryLevel, "entry", 0, "entry breakout level")
	cmd.Flags().Float64Var(&takeProfit, "take-profit", 0, "take-profit level on the underlying")
	cmd.Flags().Float64Var(&stopLoss, "stop-loss", 0, "stop-loss level on the underlying")
	cmd.Flags().BoolVar(&paper, "paper", false, "force paper mode for this session")

	return cmd
}

// collectRequest fills the trade request from flags, prompting for
// anything missing.
func collectRequest(p *Prompter, symbol string, capital float64, right, timeframe string, entry, tp, sl float64) (models.TradeRequest, error) {
	var req models.TradeRequest
	var err error

	req.Symbol = symbol
	if req.Symbol == "" {
		if req.Symbol, err = p.String("Symbol"); err != nil {
			return req, err
		}
	}
	req.Capital = capital
	if req.Capital == 0 {
		if req.Capital, err = p.Float("Capital"); err != nil {
			return req, err
		}
	}
	if right == "" {
		if right, err = p.Choice("Right", []string{"CALL", "PUT"}); err != nil {
			return req, err
		}
	}
	req.Right = models.OptionRight(right)
	if timeframe == "" {
		var choices []string
		for _, tf := range models.SupportedTimeframes {
			choices = append(choices, string(tf))
		}
		if timeframe, err = p.Choice("Timeframe", choices); err != nil {
			return req, err
		}
	}
	req.Timeframe = models.Timeframe(timeframe)
	req.EntryLevel = entry
	if req.EntryLevel == 0 {
		if req.EntryLevel, err = p.Float("Entry level"); err != nil {
			return req, err
		}
	}
	req.TakeProfit = tp
	if req.TakeProfit == 0 {
		if req.TakeProfit, err = p.Float("Take profit"); err != nil {
			return req, err
		}
	}
	req.StopLoss = sl
	if req.StopLoss == 0 {
		if req.StopLoss, err = p.Float("Stop loss"); err != nil {
			return req, err
		}
	}
	return req, nil
}

// buildGateway constructs the live Tradier gateway or a scripted paper
// gateway. The paper script walks the spot from just inside the entry
// level through it and on to the take-profit, so a paper session
// exercises the full lifecycle.
func buildGateway(cfg *config.Config, req models.TradeRequest) (gateway.Gateway, error) {
	if cfg.IsLiveMode() {
		return gateway.NewTradierGateway(gateway.TradierConfig{
			BaseURL:   cfg.Gateway.BaseURL,
			APIKey:    cfg.Gateway.APIKey,
			AccountID: cfg.Gateway.AccountID,
		}), nil
	}

	pg := gateway.NewPaperGateway()
	pg.SeedSynthetic(req.Symbol, req.EntryLevel)
	if req.Right == models.RightCall {
		pg.SetSpotSeries(req.Symbol, []float64{
			req.EntryLevel * 0.998,
			req.EntryLevel * 1.001,
			(req.EntryLevel + req.TakeProfit) / 2,
			req.TakeProfit,
		})
	} else {
		pg.SetSpotSeries(req.Symbol, []float64{
			req.EntryLevel * 1.002,
			req.EntryLevel * 0.999,
			(req.EntryLevel + req.TakeProfit) / 2,
			req.TakeProfit,
		})
	}
	return pg, nil
}

func sessionLogConfig(cfg *config.Config) logging.LogConfig {
	return logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		Dir:        cfg.Logging.Dir,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	}
}

// journalOrNil avoids a typed-nil interface when the journal failed to
// open.
func journalOrNil(app *App) monitor.Journal {
	if app.Journal == nil {
		return nil
	}
	return app.Journal
}

// renderChain prints the scored chain, best candidate highlighted.
func renderChain(output *Output, result models.ScoreResult) {
	if !result.Ranked {
		output.Warning("No scorable contracts (missing ask or greeks); chain shown unranked.")
	}

	table := NewTable(output, "#", "Contract", "Bid", "Ask", "Delta", "Gamma", "Theta", "IV", "Score")
	for i, c := range result.Candidates {
		row := []string{
			fmt.Sprintf("%d", i+1),
			c.Contract.Describe(),
			fmt.Sprintf("%.2f", c.Quote.Bid),
			fmt.Sprintf("%.2f", c.Quote.Ask),
		}
		if g := c.Quote.Greeks; g != nil {
			row = append(row,
				fmt.Sprintf("%.3f", g.Delta),
				fmt.Sprintf("%.3f", g.Gamma),
				fmt.Sprintf("%.3f", g.Theta),
				fmt.Sprintf("%.2f", g.ImpliedVolatility),
			)
		} else {
			row = append(row, "-", "-", "-", "-")
		}
		if c.Scored {
			score := fmt.Sprintf("%.3f", c.Score)
			if result.Ranked && i == result.Best {
				score = output.Green(score + " ★")
			}
			row = append(row, score)
		} else {
			row = append(row, output.DimText("-"))
		}
		table.AddRow(row...)
	}
	table.Render()
}

// renderResult prints the session summary.
func renderResult(output *Output, result models.SessionResult) {
	output.Println()
	switch result.Status {
	case models.SessionClosed:
		output.Success("Session closed: %s", result.Contract.Describe())
		output.Printf("  entry %.2f  exit %.2f  qty %d  pnl %s\n",
			result.EntryPrice, result.ExitPrice, result.Quantity, output.FormatPnL(result.PnL()))
	case models.SessionManualIntervention:
		output.Error("MANUAL INTERVENTION REQUIRED: exit order unfilled, position still open")
		output.Printf("  contract %s  qty %d  entry %.2f\n",
			result.Contract.Describe(), result.Quantity, result.EntryPrice)
	case models.SessionPositionMismatch:
		output.Error("Position mismatch: fill reported but position not confirmed")
	case models.SessionAbortedUnfilled:
		output.Warning("Session aborted before a position was opened")
	case models.SessionInterrupted:
		output.Warning("Session interrupted")
	default:
		output.Error("Session failed with a gateway error")
	}
	if result.Err != nil {
		output.Dim("  %v", result.Err)
	}
}
