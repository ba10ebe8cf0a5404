// Package consolidate provides the batch consolidation command.
package consolidate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/internal/cmd/output"
	"github.com/agentstation/speakerpool/internal/notify"
	"github.com/agentstation/speakerpool/pkg/consolidator"
)

// Flags holds the consolidate command flags.
type Flags struct {
	DryRun bool
	Notify bool
}

// NewCommand creates the consolidate command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "consolidate",
		GroupID: "admin",
		Short:   "Fold pending delta artifacts into the canonical collection",
		Long: `Consolidate reads the canonical speaker collection, applies every pending
delta artifact in listing order, writes the collection back and clears the
artifacts it applied.

Artifacts that cannot be attributed or parsed are left in place for an
operator. A run with nothing to apply never rewrites the canonical object.`,
		Example: `  speakerpool consolidate             # Run the batch job
  speakerpool consolidate --dry-run   # Show what would be applied
  speakerpool consolidate --notify    # Mail the report to the administrators`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "apply in memory only; write and clear nothing")
	cmd.Flags().BoolVar(&flags.Notify, "notify", false, "always mail the run report, not only when it needs attention")

	return cmd
}

func run(cmd *cobra.Command, app appcontext.Interface, flags *Flags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := app.Logger()

	c, err := app.Consolidator(ctx, flags.DryRun)
	if err != nil {
		return err
	}

	res, runErr := c.Run(ctx)

	if err := app.PushMetrics(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to push metrics")
	}

	if res != nil {
		if err := printResult(cmd, app, res); err != nil {
			return err
		}
		if flags.Notify || runErr != nil || res.NeedsAttention() {
			report(ctx, app, res, runErr)
		}
	}
	return runErr
}

func printResult(cmd *cobra.Command, app appcontext.Interface, res *consolidator.Result) error {
	format := output.DetectFormat(app.OutputFormat())
	if output.IsTable(format) {
		text := res.Summary()
		if format == output.FormatWide || res.NeedsAttention() {
			text = res.Report()
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	return output.NewFormatter(format).Format(cmd.OutOrStdout(), res)
}

// report mails the run. Delivery problems are logged, never returned, so a
// broken mail setup cannot fail a run that already wrote storage.
func report(ctx context.Context, app appcontext.Interface, res *consolidator.Result, runErr error) {
	logger := app.Logger()
	n, err := app.Notifier()
	if err != nil {
		logger.Warn().Err(err).Msg("Notifier unavailable")
		return
	}

	subject := "Speaker pool consolidation " + res.RunID
	text := res.Report()
	switch {
	case runErr != nil:
		subject += ": failed"
		text += "\nError: " + runErr.Error() + "\n"
	case res.NeedsAttention():
		subject += ": needs attention"
	default:
		subject += ": ok"
	}

	if err := n.Notify(ctx, notify.Report{Subject: subject, Text: text}); err != nil {
		logger.Warn().Err(err).Msg("Failed to send run report")
	}
}
