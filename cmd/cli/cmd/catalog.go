// Package cmd - catalog command
package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
	"plan-pricing/internal/logging"
)

var (
	tenantFlag string
	atFlag     string
)

// catalogCmd lists the plan versions found at a path
var catalogCmd = &cobra.Command{
	Use:   "catalog [path]",
	Short: "List plan versions",
	Long: `List the plan versions found at path, or in the configured catalog
directory.

With --at only versions effective at that instant are shown.

Examples:
  plan-pricing catalog ./plans
  plan-pricing catalog ./plans --tenant <uuid> --at 2024-02-01T00:00:00Z`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&tenantFlag, "tenant", "", "only list this tenant's versions")
	catalogCmd.Flags().StringVar(&atFlag, "at", "", "only list versions effective at this RFC 3339 instant")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	var tenant uuid.UUID
	if tenantFlag != "" {
		id, err := uuid.Parse(tenantFlag)
		if err != nil {
			return errors.Validationf("tenant", "invalid UUID %q", tenantFlag)
		}
		tenant = id
	}

	var at time.Time
	if atFlag != "" {
		t, err := time.Parse(time.RFC3339Nano, atFlag)
		if err != nil {
			return errors.Validationf("at", "invalid RFC 3339 timestamp %q", atFlag)
		}
		at = t
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	cat, err := loadCatalog(planSource(path), logging.Named("catalog"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	shown := 0
	for _, pv := range cat.All() {
		if tenant != uuid.Nil && pv.TenantID() != tenant {
			continue
		}
		if !at.IsZero() && !pv.IsEffectiveAt(at) {
			continue
		}
		shown++

		name := pv.PlanID().String()
		if p, err := cat.Plan(pv.TenantID(), pv.PlanID()); err == nil {
			name = p.Name
		}
		fmt.Fprintf(out, "%s  %-24s v%-3d %s  %s  %d component(s)\n",
			pv.TenantID(), truncate(name, 24), pv.Version(), pv.Currency(),
			effectiveRange(pv), pv.Len())
	}

	stats := cat.Stats()
	fmt.Fprintf(out, "\n%d of %d version(s) across %d tenant(s)\n", shown, stats.Versions, stats.Tenants)
	for _, t := range model.ComponentTypes {
		if n := stats.ByComponent[t]; n > 0 {
			fmt.Fprintf(out, "  %-10s %d\n", t, n)
		}
	}
	return nil
}

func effectiveRange(pv *model.PlanVersion) string {
	from := pv.EffectiveFrom().UTC().Format(time.DateOnly)
	if to := pv.EffectiveTo(); to != nil {
		return from + " .. " + to.UTC().Format(time.DateOnly)
	}
	return from + " .. open"
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
