package self

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/internal/cmd/output"
	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// NewSaveCommand creates the save command.
func NewSaveCommand(app appcontext.Interface) *cobra.Command {
	profile := &Profile{}

	cmd := &cobra.Command{
		Use:     "save",
		GroupID: "self",
		Short:   "Edit your own speaker record",
		Long: `Save applies the given fields to the signed-in speaker's record and writes
the merged record to their delta artifact. Only the flags you pass are
changed; pass an empty value to clear a field.`,
		Example: `  speakerpool save --company Acme
  speakerpool save --topics "Go, Observability" --external=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patch := profile.Patch(cmd.Flags())
			if patch.IsEmpty() {
				return errors.NewValidationError("flags", nil, "nothing to save: pass at least one field flag")
			}

			ctx, session, err := loadSession(cmd, app)
			if err != nil {
				return err
			}
			res, err := session.SaveOwnDelta(ctx, patch)
			if err != nil {
				return err
			}

			records := []speakers.Speaker{*res.Record}
			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, res.Record, output.SpeakersToData(records, format == output.FormatWide))
		},
	}

	addProfileFlags(cmd, profile)
	return cmd
}
