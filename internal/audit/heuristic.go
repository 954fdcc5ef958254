package audit

import (
	"strings"

	"github.com/vanpelt/aura/internal/models"
)

type keywordRule struct {
	all      []string
	any      []string
	severity string
	item     models.RiskItem
}

var keywordRules = []keywordRule{
	{all: []string{"sell", "data"}, severity: "high", item: models.RiskItem{Category: "Privacy", Text: "Your personal data may be sold"}},
	{any: []string{"waive"}, severity: "high", item: models.RiskItem{Category: "Legal", Text: "You waive some legal rights"}},
	{any: []string{"arbitration"}, severity: "high", item: models.RiskItem{Category: "Legal", Text: "Disputes go to binding arbitration"}},
	{any: []string{"terminate"}, severity: "medium", item: models.RiskItem{Category: "Legal", Text: "Account can be terminated at their discretion"}},
	{any: []string{"third party", "third-party", "affiliates"}, severity: "medium", item: models.RiskItem{Category: "Privacy", Text: "Data shared with third parties or affiliates"}},
	{any: []string{"refund"}, severity: "low", item: models.RiskItem{Category: "good", Text: "A refund policy is described"}},
	{any: []string{"opt out", "opt-out"}, severity: "low", item: models.RiskItem{Category: "good", Text: "You can opt out"}},
}

// Heuristic produces an offline verdict from keyword matches. It never calls
// a provider and is meant for demos and smoke tests.
func Heuristic(text string) *models.AuditResult {
	lower := strings.ToLower(text)
	rb := models.RiskBreakdown{High: []models.RiskItem{}, Medium: []models.RiskItem{}, Low: []models.RiskItem{}}

	for _, rule := range keywordRules {
		if !rule.matches(lower) {
			continue
		}
		switch rule.severity {
		case "high":
			rb.High = append(rb.High, rule.item)
		case "medium":
			rb.Medium = append(rb.Medium, rule.item)
		default:
			rb.Low = append(rb.Low, rule.item)
		}
	}

	result := &models.AuditResult{RiskBreakdown: rb}
	switch {
	case len(rb.High) > 0:
		result.ActionVerdict = "Refuse"
		result.VerdictSummary = "This document contains high-risk clauses. Read the flagged items before agreeing."
	case len(rb.Medium) > 0:
		result.ActionVerdict = "Accept"
		result.VerdictSummary = "No critical red flags, but some terms deserve a closer look."
	default:
		result.ActionVerdict = "Accept"
		result.VerdictSummary = "No obvious red flags were found."
	}
	return result
}

func (r keywordRule) matches(lower string) bool {
	for _, kw := range r.all {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(r.any) == 0 {
		return len(r.all) > 0
	}
	for _, kw := range r.any {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
