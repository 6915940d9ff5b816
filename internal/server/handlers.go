package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lamf-engine/internal/engine"
	apperrors "lamf-engine/internal/errors"
	"lamf-engine/internal/models"
)

// revalueRequest optionally overrides the NAV feed with a uniform move.
type revalueRequest struct {
	FluctuationPct *float64 `json:"fluctuation_pct"`
}

func (s *Server) handleRevalueJob(c *gin.Context) {
	var req revalueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	pct := decimal.Zero
	if req.FluctuationPct != nil {
		pct = decimal.NewFromFloat(*req.FluctuationPct)
	}

	result, err := s.engine.RevalueAll(c.Request.Context(), engine.FluctuationFeed{Percent: pct})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processed":   result.Processed,
		"failed":      result.Failed,
		"errors":      result.Errors,
		"duration_ms": result.Duration.Milliseconds(),
	})
}

func (s *Server) handleRiskSweep(c *gin.Context) {
	summary, err := s.engine.SweepAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loans_checked":       summary.LoansChecked,
		"margin_calls_raised": summary.MarginCallsRaised,
		"skipped":             summary.Skipped,
		"failed":              summary.Failed,
		"errors":              summary.Errors,
		"duration_ms":         summary.Duration.Milliseconds(),
	})
}

func (s *Server) handleRebalance(c *gin.Context) {
	report, err := s.engine.DetectAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	needs := make([]gin.H, 0, len(report.Needs))
	for i := range report.Needs {
		needs = append(needs, rebalancingNeedJSON(&report.Needs[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"loans_checked":   report.LoansChecked,
		"needs":           needs,
		"total_shortfall": report.TotalShortfall.Round(2).String(),
		"failed":          report.Failed,
		"errors":          report.Errors,
		"duration_ms":     report.Duration.Milliseconds(),
	})
}

func (s *Server) handleEscalate(c *gin.Context) {
	escalated, batchErrs, err := s.engine.EscalateOverdue(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"escalated": escalated,
		"errors":    batchErrs,
	})
}

// paymentRequest is the body for POST /api/v1/loans/:id/payments.
type paymentRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Date      string `json:"date"` // YYYY-MM-DD, defaults to today
	Mode      string `json:"mode"`
	Reference string `json:"reference"`
}

func (s *Server) handlePayment(c *gin.Context) {
	loanID := c.Param("id")

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	paymentDate := time.Now()
	if req.Date != "" {
		paymentDate, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
	}

	result, err := s.engine.Allocate(c.Request.Context(), loanID, amount, paymentDate, req.Mode, req.Reference)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	installments := make([]gin.H, 0, len(result.UpdatedInstallments))
	for i := range result.UpdatedInstallments {
		inst := &result.UpdatedInstallments[i]
		installments = append(installments, gin.H{
			"sequence":    inst.Sequence,
			"due_date":    inst.DueDate.Format("2006-01-02"),
			"paid_amount": inst.PaidAmount.Round(2).String(),
			"status":      inst.Status(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":           result.Payment.ID,
		"applied":              result.Applied.Round(2).String(),
		"unapplied":            result.Unapplied.Round(2).String(),
		"total_outstanding":    result.Loan.TotalOutstanding.Round(2).String(),
		"loan_status":          result.Loan.Status,
		"updated_installments": installments,
	})
}

func (s *Server) handleForeclosure(c *gin.Context) {
	loanID := c.Param("id")

	asOf := time.Now()
	if v := c.Query("as_of"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid as_of, expected YYYY-MM-DD"})
			return
		}
		asOf = parsed
	}

	quote, err := s.engine.QuoteForeclosure(c.Request.Context(), loanID, asOf)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loan_id":               quote.LoanID,
		"as_of":                 quote.AsOf.Format("2006-01-02"),
		"outstanding_principal": quote.OutstandingPrincipal.String(),
		"outstanding_interest":  quote.OutstandingInterest.String(),
		"accrued_interest":      quote.AccruedInterest.String(),
		"days_accrued":          quote.DaysAccrued,
		"penalty_percent":       quote.PenaltyPercent.String(),
		"penalty_amount":        quote.PenaltyAmount.String(),
		"tax_on_penalty":        quote.TaxOnPenalty.String(),
		"penalty_waived":        quote.PenaltyWaived,
		"total_payable":         quote.TotalPayable.String(),
	})
}

func (s *Server) handleLTV(c *gin.Context) {
	loanID := c.Param("id")

	result, err := s.engine.RecomputeLTV(c.Request.Context(), loanID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"loan_id": result.LoanID,
		"skipped": result.Skipped,
	}
	if !result.Skipped {
		resp["ltv"] = result.LTV.Round(2).String()
		resp["collateral_value"] = result.CollateralValue.Round(2).String()
		resp["total_outstanding"] = result.TotalOutstanding.Round(2).String()
		resp["margin_call_raised"] = result.MarginCallRaised
		if result.MarginCall != nil {
			resp["margin_call"] = gin.H{
				"id":        result.MarginCall.ID,
				"status":    result.MarginCall.Status,
				"shortfall": result.MarginCall.ShortfallAmount.Round(2).String(),
				"due_date":  result.MarginCall.DueDate.Format("2006-01-02"),
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func rebalancingNeedJSON(need *models.RebalancingNeed) gin.H {
	actions := make([]gin.H, 0, len(need.Actions))
	for _, a := range need.Actions {
		actions = append(actions, gin.H{
			"type":        a.Type,
			"amount":      a.Amount.String(),
			"description": a.Description,
		})
	}
	return gin.H{
		"loan_id":          need.LoanID,
		"current_ltv":      need.CurrentLTV.Round(2).String(),
		"target_ltv":       need.TargetLTV.String(),
		"collateral_value": need.CollateralValue.Round(2).String(),
		"shortfall":        need.Shortfall.Round(2).String(),
		"urgency":          need.Urgency,
		"actions":          actions,
	}
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var notFound *apperrors.NotFoundError
	var validation *apperrors.ValidationError
	switch {
	case apperrors.As(err, &notFound),
		apperrors.Is(err, apperrors.ErrLoanNotFound),
		apperrors.Is(err, apperrors.ErrCollateralNotFound),
		apperrors.Is(err, apperrors.ErrProductNotFound):
		return http.StatusNotFound
	case apperrors.As(err, &validation),
		apperrors.Is(err, apperrors.ErrInvalidPaymentAmount),
		apperrors.Is(err, apperrors.ErrInvalidLoanTerms):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
