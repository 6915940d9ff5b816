package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"lamf-engine/internal/engine"
	"lamf-engine/pkg/utils"
)

// addLoanCommands adds per-loan servicing commands.
func addLoanCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newScheduleCmd(app))
	rootCmd.AddCommand(newPayCmd(app))
	rootCmd.AddCommand(newForecloseCmd(app))
	rootCmd.AddCommand(newLTVCmd(app))
}

func newScheduleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview an EMI amortization schedule",
		Long: `Computes a reducing-balance EMI schedule without touching the loan
book. Useful for quoting terms before origination.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			principalStr, _ := cmd.Flags().GetString("principal")
			rateStr, _ := cmd.Flags().GetString("rate")
			tenure, _ := cmd.Flags().GetInt("tenure")
			firstDueStr, _ := cmd.Flags().GetString("first-due")

			principal, err := decimal.NewFromString(principalStr)
			if err != nil {
				return fmt.Errorf("invalid principal: %s", principalStr)
			}
			rate, err := decimal.NewFromString(rateStr)
			if err != nil {
				return fmt.Errorf("invalid rate: %s", rateStr)
			}

			firstDue := time.Now().AddDate(0, 1, 0)
			if firstDueStr != "" {
				firstDue, err = time.Parse("2006-01-02", firstDueStr)
				if err != nil {
					return fmt.Errorf("invalid first-due date, expected YYYY-MM-DD")
				}
			}

			installments, err := engine.GenerateSchedule("preview", principal, rate, tenure, firstDue)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(installments)
			}

			output.Bold("Amortization Schedule")
			output.Printf("  Principal: %s  Rate: %s%% p.a.  Tenure: %d months\n",
				utils.FormatRupees(principal), rate, tenure)
			output.Printf("  EMI: %s\n", utils.FormatRupees(installments[0].EMIAmount))
			output.Println()

			table := NewTable(output, "#", "DUE DATE", "EMI", "PRINCIPAL", "INTEREST")
			for i := range installments {
				inst := &installments[i]
				table.AddRow(
					fmt.Sprintf("%d", inst.Sequence),
					inst.DueDate.Format("02-Jan-2006"),
					utils.FormatRupees(inst.EMIAmount),
					utils.FormatRupees(inst.PrincipalComponent),
					utils.FormatRupees(inst.InterestComponent),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("principal", "", "loan principal")
	cmd.Flags().String("rate", "", "annual interest rate in percent")
	cmd.Flags().Int("tenure", 0, "tenure in months")
	cmd.Flags().String("first-due", "", "first due date (YYYY-MM-DD, default: one month out)")
	cmd.MarkFlagRequired("principal")
	cmd.MarkFlagRequired("rate")
	cmd.MarkFlagRequired("tenure")
	return cmd
}

func newPayCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay <loan-id> <amount>",
		Short: "Allocate a payment to a loan",
		Long: `Applies a payment across the loan's outstanding installments, oldest
due first, and reduces the outstanding balance.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEngine(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount: %s", args[1])
			}

			mode, _ := cmd.Flags().GetString("mode")
			reference, _ := cmd.Flags().GetString("reference")

			result, err := app.Engine.Allocate(cmd.Context(), args[0], amount, time.Now(), mode, reference)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Success("Payment of %s applied to loan %s", utils.FormatRupees(amount), args[0])
			output.Printf("  Installments touched: %d\n", len(result.UpdatedInstallments))
			for i := range result.UpdatedInstallments {
				inst := &result.UpdatedInstallments[i]
				output.Printf("    #%d due %s: %s (%s)\n",
					inst.Sequence, inst.DueDate.Format("02-Jan-2006"),
					utils.FormatRupees(inst.PaidAmount), inst.Status())
			}
			if result.Unapplied.IsPositive() {
				output.Warning("  Unapplied remainder: %s", utils.FormatRupees(result.Unapplied))
			}
			output.Printf("  Total outstanding: %s\n", utils.FormatRupees(result.Loan.TotalOutstanding))
			if result.Loan.Status == "CLOSED" {
				output.Success("  Loan fully settled and closed")
			}
			return nil
		},
	}

	cmd.Flags().String("mode", "NEFT", "payment mode")
	cmd.Flags().String("reference", "", "external payment reference")
	return cmd
}

func newForecloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foreclose <loan-id>",
		Short: "Quote a foreclosure settlement",
		Long: `Computes the amount needed to fully settle a loan on a given date,
including accrued interest, foreclosure penalty and tax. Quoting never
mutates the loan.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEngine(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			asOf := time.Now()
			if v, _ := cmd.Flags().GetString("as-of"); v != "" {
				parsed, err := time.Parse("2006-01-02", v)
				if err != nil {
					return fmt.Errorf("invalid as-of date, expected YYYY-MM-DD")
				}
				asOf = parsed
			}

			quote, err := app.Engine.QuoteForeclosure(cmd.Context(), args[0], asOf)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(quote)
			}

			output.Bold("Foreclosure Quote: loan %s as of %s", quote.LoanID, quote.AsOf.Format("02-Jan-2006"))
			output.Printf("  Outstanding principal: %s\n", utils.FormatRupees(quote.OutstandingPrincipal))
			output.Printf("  Interest arrears:      %s\n", utils.FormatRupees(quote.OutstandingInterest))
			output.Printf("  Accrued interest:      %s (%d days)\n", utils.FormatRupees(quote.AccruedInterest), quote.DaysAccrued)
			if quote.PenaltyWaived {
				output.Printf("  Foreclosure penalty:   %s\n", output.Green("waived"))
			} else {
				output.Printf("  Foreclosure penalty:   %s (%s%%)\n",
					utils.FormatRupees(quote.PenaltyAmount), quote.PenaltyPercent)
				output.Printf("  Tax on penalty:        %s\n", utils.FormatRupees(quote.TaxOnPenalty))
			}
			output.Println()
			output.Bold("  Total payable:         %s", utils.FormatRupees(quote.TotalPayable))
			return nil
		},
	}

	cmd.Flags().String("as-of", "", "settlement date (YYYY-MM-DD, default: today)")
	return cmd
}

func newLTVCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ltv <loan-id>",
		Short: "Recompute and show a loan's LTV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEngine(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			result, err := app.Engine.RecomputeLTV(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			if result.Skipped {
				output.Warning("Loan %s has no pledged collateral", args[0])
				return nil
			}

			output.Bold("Loan %s", result.LoanID)
			output.Printf("  LTV:               %s\n", utils.FormatPercent(result.LTV))
			output.Printf("  Collateral value:  %s\n", utils.FormatRupees(result.CollateralValue))
			output.Printf("  Total outstanding: %s\n", utils.FormatRupees(result.TotalOutstanding))
			if result.MarginCall != nil {
				status := string(result.MarginCall.Status)
				output.Warning("  Margin call %s [%s] shortfall %s due %s",
					result.MarginCall.ID, status,
					utils.FormatRupees(result.MarginCall.ShortfallAmount),
					result.MarginCall.DueDate.Format("02-Jan-2006"))
			}
			return nil
		},
	}
}
