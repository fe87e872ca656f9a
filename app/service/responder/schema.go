package responder

import (
	"fmt"
	"strings"
)

type BillingReply struct {
	Summary               string  `json:"summary" validate:"required"`
	Explanation           string  `json:"explanation"`
	InvoiceID             *string `json:"invoice_id"`
	NextSteps             string  `json:"next_steps"`
	EscalationRecommended bool    `json:"escalation_recommended"`
}

func (r *BillingReply) Text() string {
	var builder strings.Builder

	builder.WriteString(r.Summary)
	appendParagraph(&builder, r.Explanation)
	if r.InvoiceID != nil && *r.InvoiceID != "" {
		appendParagraph(&builder, fmt.Sprintf("Invoice: %s", *r.InvoiceID))
	}
	appendParagraph(&builder, r.NextSteps)

	return strings.TrimSpace(builder.String())
}

type TechnicalReply struct {
	IssueSummary          string   `json:"issue_summary" validate:"required"`
	PossibleCause         *string  `json:"possible_cause"`
	TroubleshootingSteps  []string `json:"troubleshooting_steps"`
	EscalationRecommended bool     `json:"escalation_recommended"`
}

func (r *TechnicalReply) Text() string {
	var builder strings.Builder

	builder.WriteString(r.IssueSummary)
	if r.PossibleCause != nil && *r.PossibleCause != "" {
		appendParagraph(&builder, fmt.Sprintf("Possible cause: %s", *r.PossibleCause))
	}

	if len(r.TroubleshootingSteps) > 0 {
		builder.WriteString("\n\nPlease try the following:")
		for i, step := range r.TroubleshootingSteps {
			builder.WriteString(fmt.Sprintf("\n%d. %s", i+1, step))
		}
	}

	return strings.TrimSpace(builder.String())
}

type AccountReply struct {
	IssueSummary          string `json:"issue_summary" validate:"required"`
	ResolutionSteps       string `json:"resolution_steps"`
	EscalationRecommended bool   `json:"escalation_recommended"`
}

func (r *AccountReply) Text() string {
	var builder strings.Builder

	builder.WriteString(r.IssueSummary)
	appendParagraph(&builder, r.ResolutionSteps)

	return strings.TrimSpace(builder.String())
}

type FeedbackReply struct {
	Response string `json:"response" validate:"required"`
	Escalate bool   `json:"escalate"`
}

func (r *FeedbackReply) Text() string {
	return strings.TrimSpace(r.Response)
}

type GeneralReply struct {
	Response string `json:"response" validate:"required"`
}

func (r *GeneralReply) Text() string {
	return strings.TrimSpace(r.Response)
}

func appendParagraph(builder *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if builder.Len() > 0 {
		builder.WriteString("\n\n")
	}
	builder.WriteString(text)
}
