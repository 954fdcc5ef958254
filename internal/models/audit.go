package models

// AuditSource is what the caller handed to the audit endpoint
type AuditSource string

const (
	AuditSourceText AuditSource = "text"
	AuditSourceURL  AuditSource = "url"
)

// AuditRequest is the FinePrint request body
type AuditRequest struct {
	Type    AuditSource `json:"type"`
	Content string      `json:"content"`
}

// RiskItem is a single flagged clause
type RiskItem struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// RiskBreakdown groups flagged clauses by severity
type RiskBreakdown struct {
	High   []RiskItem `json:"high"`
	Medium []RiskItem `json:"medium"`
	Low    []RiskItem `json:"low"`
}

// AuditResult is the verdict returned to FinePrint
type AuditResult struct {
	ActionVerdict  string        `json:"action_verdict"` // "Accept" or "Refuse"
	VerdictSummary string        `json:"verdict_summary"`
	RiskBreakdown  RiskBreakdown `json:"risk_breakdown"`
}
