// Package cmd - validate command
package cmd

import (
	"github.com/spf13/cobra"

	"plan-pricing/core/catalog"
	"plan-pricing/core/output"
	"plan-pricing/internal/config"
	"plan-pricing/internal/errors"
	"plan-pricing/internal/logging"
)

var (
	validateFormat string
	strict         bool
	fractional     bool
)

// validateCmd loads plan versions and lints them
var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check plan files for errors and pricing hazards",
	Long: `Load every plan version at path, or in the configured catalog directory,
and report problems.

Structural errors (bad UUIDs, negative prices, malformed tiers) fail loading
outright. Versions that load are then linted for hazards that still price,
such as usage ranges no tier covers or time-bound windows that never open.

Examples:
  plan-pricing validate ./plans
  plan-pricing validate --strict --format json growth.hcl
  plan-pricing validate --fractional ./plans`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "", "output format (cli, json)")
	validateCmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any finding is reported")
	validateCmd.Flags().BoolVar(&fractional, "fractional", false, "also flag volume tier bounds that leave fractional usage unpriced")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	path = planSource(path)

	cat, err := loadCatalog(path, logging.Named("catalog"))
	if err != nil {
		return err
	}

	rules := catalog.DefaultValidationRules()
	if fractional {
		rules = catalog.FractionalUsageRules()
	}
	findings := cat.Validate(rules)

	format := validateFormat
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	formatter, err := output.NewRegistry(cfg.Output.ShowDetails).Get(output.Format(format))
	if err != nil {
		return err
	}
	if err := formatter.RenderFindings(cmd.OutOrStdout(), findings); err != nil {
		return err
	}

	if strict && len(findings) > 0 {
		return errors.Newf(errors.TypeValidation, "%d finding(s) in %s", len(findings), path)
	}
	return nil
}
