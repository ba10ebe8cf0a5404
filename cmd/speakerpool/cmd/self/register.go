package self

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/internal/cmd/output"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(app appcontext.Interface) *cobra.Command {
	profile := &Profile{}

	cmd := &cobra.Command{
		Use:     "register",
		GroupID: "self",
		Short:   "Add yourself to the speaker pool",
		Long: `Register creates a speaker record for the signed-in principal. Name and
email default to the principal's. The record is written as a delta artifact
and joins the canonical collection on the next consolidation run.`,
		Example: `  speakerpool register --company Acme --topics "Go, Kubernetes" --languages nl,en --internal`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, session, err := loadSession(cmd, app)
			if err != nil {
				return err
			}
			record, err := session.Register(ctx, profile.Patch(cmd.Flags()))
			if err != nil {
				return err
			}
			app.Logger().Info().Str("unique_id", record.UniqueID).Msg("Registration saved, it is published on the next consolidation run")

			records := []speakers.Speaker{*record}
			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, record, output.SpeakersToData(records, format == output.FormatWide))
		},
	}

	addProfileFlags(cmd, profile)
	return cmd
}
