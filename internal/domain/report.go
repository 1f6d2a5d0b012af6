package domain

import (
	"fmt"
	"math"
)

// RiskLevel classifies the legal risk of an audited contract.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// AnalysisReport holds the structured metadata extracted from a contract.
type AnalysisReport struct {
	GuaranteeType   string    `json:"guarantee_type"`
	GuaranteeObject string    `json:"guarantee_object"`
	InterestRate    float64   `json:"interest_rate"`
	TermMonths      int       `json:"term_months"`
	PrincipalAmount float64   `json:"principal_amount"`
	LegalRisk       RiskLevel `json:"legal_risk"`
	ComplianceCheck bool      `json:"compliance_check"`
	Notes           string    `json:"notes,omitempty"`
}

// Validate checks field ranges before a report is attached to a job.
func (r *AnalysisReport) Validate() error {
	switch r.LegalRisk {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return fmt.Errorf("%w: legal_risk must be low, medium or high, got %q", ErrInvalidReport, r.LegalRisk)
	}
	if r.InterestRate < 0 {
		return fmt.Errorf("%w: interest_rate must be >= 0, got %v", ErrInvalidReport, r.InterestRate)
	}
	if r.TermMonths < 0 {
		return fmt.Errorf("%w: term_months must be >= 0, got %d", ErrInvalidReport, r.TermMonths)
	}
	if r.PrincipalAmount < 0 {
		return fmt.Errorf("%w: principal_amount must be >= 0, got %v", ErrInvalidReport, r.PrincipalAmount)
	}
	return nil
}

// TotalAmount computes the compound total: P * (1 + i)^n with i as the
// monthly rate in percent.
func (r *AnalysisReport) TotalAmount() float64 {
	i := r.InterestRate / 100
	return r.PrincipalAmount * math.Pow(1+i, float64(r.TermMonths))
}

// TotalInterest is the interest portion of TotalAmount.
func (r *AnalysisReport) TotalInterest() float64 {
	return r.TotalAmount() - r.PrincipalAmount
}
