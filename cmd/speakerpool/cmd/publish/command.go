// Package publish provides the admin publish command.
package publish

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/speakerpool/internal/appcontext"
)

// NewCommand creates the publish command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "publish",
		GroupID: "admin",
		Short:   "Overwrite the canonical collection with the admin view",
		Long: `Publish loads an admin session, which merges every pending delta artifact,
and writes the merged collection to the canonical key through the asset
path. Delta artifacts are not cleared; run consolidate for that.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			session, err := app.Session(ctx, true)
			if err != nil {
				return err
			}
			report, err := session.Load(ctx)
			if err != nil {
				return err
			}
			for _, failure := range report.Failures() {
				app.Logger().Warn().Err(failure.Err).Str("artifact", failure.Key).Msg("Delta artifact not merged")
			}

			n, err := session.Publish(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %d speakers to %s (%d deltas merged)\n",
				n, session.Layout().CanonicalKey, report.Applied())
			return err
		},
	}
}
