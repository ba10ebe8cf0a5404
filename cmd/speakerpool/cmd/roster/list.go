package roster

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/internal/cmd/output"
)

// NewListCommand creates the list command.
func NewListCommand(app appcontext.Interface) *cobra.Command {
	filters := &Filters{}

	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "core",
		Short:   "List speakers in the pool",
		Long: `List loads the canonical collection the way the directory does: it
merges the signed-in speaker's own pending delta, or every pending delta
in admin mode, and prints the result.`,
		Example: `  speakerpool list                       # All speakers
  speakerpool list --topic kubernetes    # Speakers on a topic
  speakerpool list --language nl -o wide # Dutch speakers, all columns
  speakerpool list --admin -o json       # Admin view with pending deltas`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, _, err := load(cmd, app, filters)
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, records,
				output.SpeakersToData(records, format == output.FormatWide))
		},
	}

	addFilterFlags(cmd, filters)
	return cmd
}
