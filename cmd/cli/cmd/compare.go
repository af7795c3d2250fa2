// Package cmd - compare command
package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"plan-pricing/adapters/codec"
	"plan-pricing/core/diff"
	"plan-pricing/core/engine"
	"plan-pricing/core/model"
	"plan-pricing/internal/config"
	"plan-pricing/internal/errors"
	"plan-pricing/internal/logging"
)

var (
	fromVersion string
	toVersion   string
	topN        int
)

// compareCmd prices one context under two plan versions
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare what a billing period costs under two plan versions",
	Long: `Evaluate the same pricing context against two plan versions and show
what changed, component by component.

Examples:
  plan-pricing compare --plan ./plans --context january.json \
    --from <version-uuid> --to <version-uuid>`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&planPath, "plan", "p", "", "plan file or directory (default is the configured catalog directory)")
	compareCmd.Flags().StringVarP(&contextPath, "context", "c", "", "pricing context file (JSON or YAML)")
	compareCmd.Flags().StringVar(&fromVersion, "from", "", "current plan version id")
	compareCmd.Flags().StringVar(&toVersion, "to", "", "proposed plan version id")
	compareCmd.Flags().IntVar(&topN, "top", 5, "number of largest changes to list")
	for _, name := range []string{"context", "from", "to"} {
		_ = compareCmd.MarkFlagRequired(name)
	}
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, err := codec.ReadContext(contextPath)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(planSource(planPath), logging.Named("catalog"))
	if err != nil {
		return err
	}

	eng := engine.New(
		engine.WithLogger(logging.Named("engine")),
		engine.WithTierGapWarnings(config.Get().Evaluation.WarnOnTierGaps),
	)

	price := func(flag, raw string) (*model.Result, error) {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Validationf(flag, "invalid UUID %q", raw)
		}
		pv, err := cat.Get(ctx.TenantID, id)
		if err != nil {
			return nil, err
		}
		return eng.Evaluate(pv, ctx)
	}

	before, err := price("from", fromVersion)
	if err != nil {
		return err
	}
	after, err := price("to", toVersion)
	if err != nil {
		return err
	}

	d, err := diff.Diff(before, after)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s -> %s %s\n", d.Currency, d.TotalBefore, d.Currency, d.TotalAfter)
	fmt.Fprint(out, d.Summary())
	for _, item := range d.TopChanges(topN) {
		fmt.Fprintf(out, "  %-9s %-40s %s\n", item.ChangeType, truncate(item.ComponentName, 40), signed(item.Delta.String()))
		for _, r := range item.Reasons {
			fmt.Fprintf(out, "            %s\n", r.What)
		}
	}
	return nil
}

func signed(amount string) string {
	if len(amount) > 0 && amount[0] != '-' {
		return "+" + amount
	}
	return amount
}
