package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// auditQueries is the retrieval plan for a contract audit. Each query
// targets one group of report fields.
var auditQueries = []string{
	"guarantee type and guaranteed object or collateral",
	"interest rate percentage per month",
	"contract term in months and principal amount",
	"penalties obligations compliance and legal risk",
}

// auditDecider walks the fixed retrieval plan, then finishes.
type auditDecider struct{}

// NewAuditDecider returns the standard contract audit plan.
func NewAuditDecider() Decider { return auditDecider{} }

func (auditDecider) Next(state State) Step {
	if n := len(state.Observations); n < len(auditQueries) {
		return Step{Kind: StepSearch, Query: auditQueries[n]}
	}
	return Step{Kind: StepFinish}
}

// buildPrompt assembles the completion prompt from gathered passages.
func buildPrompt(state State) string {
	var b strings.Builder
	b.WriteString("You are a contract auditor. Based only on the contract passages below, ")
	b.WriteString("extract structured metadata for risk assessment.\n\n")

	for _, obs := range state.Observations {
		fmt.Fprintf(&b, "## Passages for: %s\n", obs.Query)
		for _, doc := range obs.Docs {
			b.WriteString(doc.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(`Respond with ONLY a valid JSON object with these fields:
  "guarantee_type" (string),
  "guarantee_object" (string),
  "interest_rate" (number, monthly rate, just the number),
  "term_months" (integer),
  "principal_amount" (number),
  "legal_risk" (string: "low", "medium" or "high"),
  "compliance_check" (boolean),
  "notes" (string, optional)`)
	return b.String()
}

var jsonPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseReport extracts the JSON object from the completion output and
// validates it against the report schema. Models often wrap JSON in
// prose or code fences, so the first balanced-looking object wins.
func parseReport(output string) (*domain.AnalysisReport, error) {
	match := jsonPattern.FindString(output)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in completion output: %w", domain.ErrInvalidReport)
	}

	var report domain.AnalysisReport
	if err := json.Unmarshal([]byte(match), &report); err != nil {
		return nil, fmt.Errorf("decode report: %v: %w", err, domain.ErrInvalidReport)
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	return &report, nil
}
