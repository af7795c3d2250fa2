// Package engine provides the pricing evaluation engine.
// CLI and catalog tooling are thin wrappers around this engine.
//
// Evaluation is a pure function of a published plan version and a context:
// no I/O, no clock reads, no mutation of either input. An Engine holds only
// a logger and read-only options, so one Engine may serve any number of
// goroutines.
package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
	"plan-pricing/internal/logging"
)

// Engine evaluates published plan versions
type Engine struct {
	logger *zap.Logger

	// warnOnTierGaps logs tiered usage that no tier covers
	warnOnTierGaps bool
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTierGapWarnings enables warnings for tiered usage billed at zero
// because no tier covers it.
func WithTierGapWarnings(enabled bool) Option {
	return func(e *Engine) {
		e.warnOnTierGaps = enabled
	}
}

// New creates an engine. Without options it logs nothing.
func New(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var silent = New()

// Evaluate prices pv against ctx with a silent engine.
func Evaluate(pv *model.PlanVersion, ctx model.Context) (*model.Result, error) {
	return silent.Evaluate(pv, ctx)
}

// Evaluate computes the line-itemized result of pricing pv against ctx.
//
// It fails with a validation error for a malformed context, a tenant
// mismatch error when the context belongs to another tenant, and an
// invariant violation when pv was not published through model.Publish, a
// component variant is unknown, or the assembled result is inconsistent.
func (e *Engine) Evaluate(pv *model.PlanVersion, ctx model.Context) (*model.Result, error) {
	if err := model.AssertImmutable(pv); err != nil {
		e.logger.Error("refusing to evaluate unpublished plan version", zap.Error(err))
		return nil, err
	}

	ctx, err := model.NormalizeContext(ctx)
	if err != nil {
		return nil, err
	}

	// Tenant isolation is checked before any money is computed.
	if ctx.TenantID != pv.TenantID() {
		e.logger.Warn("tenant mismatch",
			logging.Tenant(ctx.TenantID.String()),
			zap.String("plan_tenant_id", pv.TenantID().String()),
			zap.String("plan_version_id", pv.ID().String()),
		)
		return nil, errors.TenantMismatch(ctx.TenantID.String(), pv.TenantID().String())
	}

	log := e.logger.With(
		logging.Tenant(ctx.TenantID.String()),
		logging.PlanVersion(pv.ID().String(), pv.Version()),
	)

	components := pv.Components()
	items := make([]model.LineItem, 0, len(components))
	total := decimal.Zero
	for _, c := range components {
		item, err := e.evaluateComponent(c, ctx, log)
		if err != nil {
			log.Error("component evaluation failed", zap.Error(err))
			return nil, err
		}
		items = append(items, item)
		total = total.Add(item.Amount)
	}

	result := &model.Result{
		TenantID:            ctx.TenantID,
		PricingVersionID:    pv.ID(),
		PlanID:              pv.PlanID(),
		Currency:            pv.Currency(),
		TotalAmount:         total,
		LineItems:           items,
		EvaluationTimestamp: ctx.EvaluationTimestamp,
		BillingPeriodStart:  ctx.BillingPeriodStart,
		BillingPeriodEnd:    ctx.BillingPeriodEnd,
		IdempotencyComponents: model.IdempotencyComponents{
			TenantID:           ctx.TenantID,
			PlanVersionID:      pv.ID(),
			BillingPeriodStart: ctx.BillingPeriodStart,
			BillingPeriodEnd:   ctx.BillingPeriodEnd,
		},
	}

	if err := result.Validate(); err != nil {
		log.Error("assembled result failed validation", zap.Error(err))
		return nil, errors.Invariant("assembled pricing result is inconsistent", err)
	}

	log.Debug("evaluated plan version",
		zap.Int("line_items", len(items)),
		zap.String("total", total.String()),
		zap.String("idempotency_key", result.IdempotencyKey()),
	)
	return result, nil
}
