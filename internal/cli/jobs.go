package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"lamf-engine/internal/engine"
	"lamf-engine/pkg/utils"
)

// addJobCommands adds the portfolio batch job commands.
func addJobCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSweepCmd(app))
	rootCmd.AddCommand(newRevalueCmd(app))
	rootCmd.AddCommand(newRebalanceCmd(app))
	rootCmd.AddCommand(newEscalateCmd(app))
}

func newSweepCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a portfolio-wide LTV risk sweep",
		Long: `Recomputes LTV for every ACTIVE loan and raises margin calls where
the product's threshold is breached. Loans already carrying a pending
margin call are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEngine(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			summary, err := app.Engine.SweepAll(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Risk Sweep")
			output.Printf("  Loans checked:       %d\n", summary.LoansChecked)
			output.Printf("  Margin calls raised: %d\n", summary.MarginCallsRaised)
			output.Printf("  Skipped:             %d\n", summary.Skipped)
			output.Printf("  Failed:              %d\n", summary.Failed)
			output.Dim("Completed in %s", summary.Duration.Round(time.Millisecond))
			printBatchErrors(output, summary.Errors)
			return nil
		},
	}
}

func newRevalueCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revalue",
		Short: "Revalue all pledged collateral",
		Long: `Reprices every pledged collateral position and rechecks the LTV of
every loan touched. Without an external feed, --fluctuation applies a
uniform percentage move to all NAVs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEngine(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			pct, _ := cmd.Flags().GetFloat64("fluctuation")
			feed := engine.FluctuationFeed{Percent: decimal.NewFromFloat(pct)}

			result, err := app.Engine.RevalueAll(cmd.Context(), feed)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Bold("NAV Revaluation")
			output.Printf("  Positions repriced: %d\n", result.Processed)
			output.Printf("  Failed:             %d\n", result.Failed)
			output.Dim("Completed in %s", result.Duration.Round(time.Millisecond))
			printBatchErrors(output, result.Errors)
			return nil
		},
	}

	cmd.Flags().Float64("fluctuation", 0, "uniform NAV move in percent (e.g. -2.5)")
	return cmd
}

func newRebalanceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance",
		Short: "Detect loans needing collateral rebalancing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEngine(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			report, err := app.Engine.DetectAll(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			output.Bold("Rebalancing Needs")
			if len(report.Needs) == 0 {
				output.Success("All loans within policy LTV")
				return nil
			}

			table := NewTable(output, "LOAN", "LTV", "TARGET", "SHORTFALL", "URGENCY")
			for i := range report.Needs {
				need := &report.Needs[i]
				table.AddRow(
					need.LoanID,
					utils.FormatPercent(need.CurrentLTV),
					utils.FormatPercent(need.TargetLTV),
					utils.FormatRupees(need.Shortfall),
					output.UrgencyTag(string(need.Urgency)),
				)
			}
			table.Render()
			output.Println()
			output.Printf("Total shortfall: %s across %d loans\n",
				utils.FormatRupees(report.TotalShortfall), len(report.Needs))
			printBatchErrors(output, report.Errors)
			return nil
		},
	}
}

func newEscalateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "escalate",
		Short: "Escalate margin calls past their grace window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEngine(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			escalated, batchErrs, err := app.Engine.EscalateOverdue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"escalated": escalated,
					"errors":    batchErrs,
				})
			}

			if escalated == 0 {
				output.Success("No overdue margin calls")
			} else {
				output.Warning("Escalated %d margin call(s)", escalated)
			}
			printBatchErrors(output, batchErrs)
			return nil
		},
	}
}

func printBatchErrors(output *Output, errs []engine.BatchError) {
	if len(errs) == 0 {
		return
	}
	output.Println()
	output.Warning("Errors:")
	for _, e := range errs {
		output.Printf("  %s\n", fmt.Sprintf("%s: %s", e.ID, e.Err))
	}
}
