// Package cmd - evaluate command
package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plan-pricing/adapters/codec"
	"plan-pricing/core/catalog"
	"plan-pricing/core/engine"
	"plan-pricing/core/model"
	"plan-pricing/core/output"
	"plan-pricing/internal/config"
	"plan-pricing/internal/errors"
	"plan-pricing/internal/logging"
)

var (
	planPath     string
	contextPath  string
	planIDFlag   string
	versionFlag  string
	outputFormat string
	showDetails  bool
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Price a billing period against a plan version",
	Long: `Evaluate a pricing context against a published plan version.

--plan may name a single plan file or a directory of them. When it holds
more than one version, pick one with --version-id, or with --plan-id to use
the version of that plan in effect at the context's evaluation timestamp.

Examples:
  plan-pricing evaluate --plan growth.hcl --context january.json
  plan-pricing evaluate --plan ./plans --plan-id <uuid> --context january.yaml
  plan-pricing evaluate --plan ./plans --version-id <uuid> --context c.json --format json`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&planPath, "plan", "p", "", "plan file or directory (default is the configured catalog directory)")
	evaluateCmd.Flags().StringVarP(&contextPath, "context", "c", "", "pricing context file (JSON or YAML)")
	evaluateCmd.Flags().StringVar(&planIDFlag, "plan-id", "", "plan to resolve at the evaluation timestamp")
	evaluateCmd.Flags().StringVar(&versionFlag, "version-id", "", "exact plan version to evaluate")
	evaluateCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format (cli, json); defaults to the configured format")
	evaluateCmd.Flags().BoolVarP(&showDetails, "details", "d", true, "show line item descriptions")
	_ = evaluateCmd.MarkFlagRequired("context")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logger := logging.Named("evaluate")

	ctx, err := codec.ReadContext(contextPath)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(planSource(planPath), logging.Named("catalog"))
	if err != nil {
		return err
	}

	pv, err := selectVersion(cat, ctx)
	if err != nil {
		return err
	}

	eng := engine.New(
		engine.WithLogger(logging.Named("engine")),
		engine.WithTierGapWarnings(cfg.Evaluation.WarnOnTierGaps),
	)
	result, err := evaluateVersion(eng, pv, ctx, logger)
	if err != nil {
		return err
	}

	format := outputFormat
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	details := showDetails
	if !cmd.Flags().Changed("details") {
		details = cfg.Output.ShowDetails
	}

	formatter, err := output.NewRegistry(details).Get(output.Format(format))
	if err != nil {
		return err
	}
	return formatter.Render(cmd.OutOrStdout(), result)
}

func evaluateVersion(eng *engine.Engine, pv *model.PlanVersion, ctx model.Context, logger *zap.Logger) (*model.Result, error) {
	result, err := eng.Evaluate(pv, ctx)
	if err != nil {
		logger.Error("Evaluation failed",
			logging.Tenant(ctx.TenantID.String()),
			logging.PlanVersion(pv.ID().String(), pv.Version()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

func selectVersion(cat *catalog.Catalog, ctx model.Context) (*model.PlanVersion, error) {
	switch {
	case versionFlag != "":
		id, err := uuid.Parse(versionFlag)
		if err != nil {
			return nil, errors.Validationf("version-id", "invalid UUID %q", versionFlag)
		}
		return cat.Get(ctx.TenantID, id)

	case planIDFlag != "":
		id, err := uuid.Parse(planIDFlag)
		if err != nil {
			return nil, errors.Validationf("plan-id", "invalid UUID %q", planIDFlag)
		}
		return cat.Resolve(ctx.TenantID, id, ctx.EvaluationTimestamp)
	}

	all := cat.All()
	switch len(all) {
	case 0:
		return nil, errors.NotFound("plan version", planSource(planPath))
	case 1:
		return all[0], nil
	default:
		return nil, errors.Newf(errors.TypeConfig,
			"%s holds %d plan versions; pass --plan-id or --version-id", planSource(planPath), len(all))
	}
}
