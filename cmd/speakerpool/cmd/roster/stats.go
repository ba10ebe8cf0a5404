package roster

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/internal/cmd/output"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(app appcontext.Interface) *cobra.Command {
	filters := &Filters{}

	cmd := &cobra.Command{
		Use:     "stats",
		GroupID: "core",
		Short:   "Show roster statistics",
		Long: `Stats counts speakers by availability, company, language and topic.
The search flags narrow the roster before counting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, _, err := load(cmd, app, filters)
			if err != nil {
				return err
			}
			st := speakers.ComputeStats(records)
			return output.Write(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), st, output.StatsToData(st))
		},
	}

	addFilterFlags(cmd, filters)
	return cmd
}
