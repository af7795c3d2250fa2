package output

import (
	"fmt"
	"io"
	"time"

	"plan-pricing/core/catalog"
	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
)

const (
	ruleTop    = "┌─────────────────────────────────────────────────────────────────────────┐"
	ruleMiddle = "├─────────────────────────────────────────────────────────────────────────┤"
	ruleBottom = "└─────────────────────────────────────────────────────────────────────────┘"
)

// CLIFormatter renders a boxed table for terminals. Amounts are printed
// exactly as computed, never rounded through floats.
type CLIFormatter struct {
	// ShowDetails adds each line item's description under its row
	ShowDetails bool
}

// Format implements Formatter
func (f *CLIFormatter) Format() Format { return FormatCLI }

// Render implements Formatter
func (f *CLIFormatter) Render(w io.Writer, result *model.Result) error {
	if result == nil {
		return errors.New(errors.TypeInvariant, "cannot render a nil result")
	}

	p := &printer{w: w}
	p.line(ruleTop)
	p.line("│                             PRICING SUMMARY                             │")
	p.line(ruleMiddle)
	p.meta("Plan version", result.PricingVersionID.String())
	p.meta("Tenant", result.TenantID.String())
	p.meta("Billing period", fmt.Sprintf("%s .. %s",
		result.BillingPeriodStart.Format(time.DateOnly),
		result.BillingPeriodEnd.Format(time.DateOnly)))
	p.line(ruleMiddle)

	for _, item := range result.LineItems {
		p.row(item.ComponentName, money(result.Currency, item.Amount.String()))
		if f.ShowDetails && item.Description != "" {
			p.printf("│   └─ %-66s │\n", truncate(item.Description, 66))
		}
	}

	p.line(ruleMiddle)
	p.row("TOTAL", money(result.Currency, result.TotalAmount.String()))
	p.line(ruleBottom)
	p.printf("\nIdempotency key: %s\n", result.IdempotencyKey())

	return p.err
}

// RenderFindings implements Formatter
func (f *CLIFormatter) RenderFindings(w io.Writer, findings []catalog.Finding) error {
	p := &printer{w: w}
	if len(findings) == 0 {
		p.line("No findings.")
		return p.err
	}
	for _, finding := range findings {
		p.printf("  - %s\n", finding)
	}
	p.printf("\n%d finding(s)\n", len(findings))
	return p.err
}

// printer keeps the first write error so rendering code stays linear
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) {
	p.printf("%s\n", s)
}

func (p *printer) meta(label, value string) {
	p.printf("│ %-16s %-54s │\n", label, truncate(value, 54))
}

func (p *printer) row(label, value string) {
	p.printf("│ %-50s %20s │\n", truncate(label, 50), truncate(value, 20))
}

func money(currency, amount string) string {
	return currency + " " + amount
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
