package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"plan-pricing/core/model"
	"plan-pricing/core/pricing/primitives"
	"plan-pricing/internal/errors"
	"plan-pricing/internal/logging"
)

var one = decimal.NewFromInt(1)

// evaluateComponent dispatches over the closed component set. Anything
// else means the model and engine disagree about the variants.
func (e *Engine) evaluateComponent(c model.Component, ctx model.Context, log *zap.Logger) (model.LineItem, error) {
	switch v := c.(type) {
	case model.FlatFee:
		return evaluateFlatFee(v), nil
	case model.Usage:
		return evaluateUsage(v, ctx), nil
	case model.Seat:
		return evaluateSeat(v, ctx), nil
	case model.Tiered:
		return e.evaluateTiered(v, ctx, log)
	case model.TimeBound:
		return evaluateTimeBound(v, ctx), nil
	default:
		return model.LineItem{}, errors.Invariant(fmt.Sprintf("unknown component variant %T", c), nil).
			WithContext("component_type", string(c.Type()))
	}
}

func lineItem(c model.Component) model.LineItem {
	meta := c.Meta()
	return model.LineItem{
		ComponentID:   meta.ID,
		ComponentName: meta.Name,
		ComponentType: c.Type(),
	}
}

func evaluateFlatFee(c model.FlatFee) model.LineItem {
	item := lineItem(c)
	item.Quantity = one
	item.UnitPrice = c.Amount
	item.Amount = c.Amount
	item.Description = "Flat fee: " + c.Name
	return item
}

func evaluateUsage(c model.Usage, ctx model.Context) model.LineItem {
	billable := primitives.BillableUnits(ctx.UsageFor(c.ID), c.IncludedUnits)

	item := lineItem(c)
	item.Quantity = billable
	item.UnitPrice = c.UnitPrice
	item.Amount = billable.Mul(c.UnitPrice)
	item.Description = fmt.Sprintf("Usage: %s %s(s) @ %s each (%d included)",
		billable, c.UnitName, c.UnitPrice, c.IncludedUnits)
	return item
}

func evaluateSeat(c model.Seat, ctx model.Context) model.LineItem {
	seats := decimal.NewFromInt(primitives.EffectiveSeats(ctx.Seats, c.MinimumSeats, c.MaximumSeats))

	item := lineItem(c)
	item.Quantity = seats
	item.UnitPrice = c.PricePerSeat
	item.Amount = seats.Mul(c.PricePerSeat)
	item.Description = fmt.Sprintf("Seats: %s seat(s) @ %s each", seats, c.PricePerSeat)
	return item
}

func (e *Engine) evaluateTiered(c model.Tiered, ctx model.Context, log *zap.Logger) (model.LineItem, error) {
	used := ctx.UsageFor(c.ID)
	bands := c.Bands()

	item := lineItem(c)
	item.Quantity = used

	switch c.TierMode {
	case model.TierVolume:
		res := primitives.Volume(used, bands)
		item.Amount = res.Amount
		if res.Matched {
			item.Description = fmt.Sprintf("Volume tier: %s %s(s) @ %s each", used, c.UnitName, res.Band.UnitPrice)
		} else {
			item.Description = fmt.Sprintf("Volume tier: no tier covers %s %s(s)", used, c.UnitName)
			if used.IsPositive() {
				e.warnTierGap(log, c, used)
			}
		}

	case model.TierGraduated:
		res := primitives.Graduated(used, bands)
		item.Amount = res.Amount
		parts := make([]string, len(res.Portions))
		for i, p := range res.Portions {
			parts[i] = fmt.Sprintf("%s @ %s", p.Units, p.UnitPrice)
		}
		item.Description = "Graduated tier: " + strings.Join(parts, ", ")
		if res.Uncovered.IsPositive() {
			e.warnTierGap(log, c, res.Uncovered)
		}

	default:
		return model.LineItem{}, errors.Invariant(fmt.Sprintf("unknown tier mode %q", c.TierMode), nil)
	}

	item.UnitPrice = primitives.AverageUnitPrice(item.Amount, used)
	return item, nil
}

func (e *Engine) warnTierGap(log *zap.Logger, c model.Tiered, unbilled decimal.Decimal) {
	if !e.warnOnTierGaps {
		return
	}
	log.Warn("tiered usage not covered by any tier, billing zero for it",
		logging.Component(c.ID.String(), string(c.Type())),
		zap.String("tier_mode", string(c.TierMode)),
		zap.String("unbilled_units", unbilled.String()),
	)
}

func evaluateTimeBound(c model.TimeBound, ctx model.Context) model.LineItem {
	item := lineItem(c)
	item.UnitPrice = c.Amount
	item.Quantity = decimal.Zero
	item.Amount = decimal.Zero
	status := "inactive"

	if primitives.WithinWindow(ctx.EvaluationTimestamp, c.ValidFrom, c.ValidTo) {
		item.Quantity = one
		item.Amount = c.Amount
		status = "active"
	}

	item.Description = fmt.Sprintf("Time-bound fee: %s (%s)", c.Name, status)
	return item
}
