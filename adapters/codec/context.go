package codec

import (
	"github.com/shopspring/decimal"

	"plan-pricing/core/model"
)

type contextWire struct {
	TenantID            string                     `json:"tenantId" yaml:"tenantId"`
	EvaluationTimestamp string                     `json:"evaluationTimestamp" yaml:"evaluationTimestamp"`
	BillingPeriodStart  string                     `json:"billingPeriodStart" yaml:"billingPeriodStart"`
	BillingPeriodEnd    string                     `json:"billingPeriodEnd" yaml:"billingPeriodEnd"`
	Usage               map[string]decimal.Decimal `json:"usage" yaml:"usage"`
	Seats               *int64                     `json:"seats" yaml:"seats"`
	Metadata            map[string]interface{}     `json:"metadata" yaml:"metadata"`
}

// DecodeContext decodes a pricing context. Usage keys are kept as written;
// canonicalization happens in model.NormalizeContext.
func DecodeContext(data []byte, f Format) (model.Context, error) {
	var w contextWire
	if err := unmarshal(data, f, &w); err != nil {
		return model.Context{}, err
	}

	var err error
	ctx := model.Context{
		Usage:    w.Usage,
		Seats:    w.Seats,
		Metadata: normalizeMetadata(w.Metadata),
	}
	if ctx.TenantID, err = parseUUID(w.TenantID, "tenantId"); err != nil {
		return model.Context{}, err
	}
	if ctx.EvaluationTimestamp, err = parseTime(w.EvaluationTimestamp, "evaluationTimestamp"); err != nil {
		return model.Context{}, err
	}
	if ctx.BillingPeriodStart, err = parseTime(w.BillingPeriodStart, "billingPeriodStart"); err != nil {
		return model.Context{}, err
	}
	if ctx.BillingPeriodEnd, err = parseTime(w.BillingPeriodEnd, "billingPeriodEnd"); err != nil {
		return model.Context{}, err
	}
	return ctx, nil
}

// ReadContext reads and decodes a context file.
func ReadContext(path string) (model.Context, error) {
	data, err := readFile(path)
	if err != nil {
		return model.Context{}, err
	}
	ctx, err := DecodeContext(data, FormatFor(path))
	if err != nil {
		return model.Context{}, withFile(err, path)
	}
	return ctx, nil
}
