package self

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/internal/auth"
	"github.com/agentstation/speakerpool/internal/cmd/output"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// Whoami is the whoami command result.
type Whoami struct {
	Credential *auth.Status       `json:"credential" yaml:"credential"`
	Principal  identity.Principal `json:"principal" yaml:"principal"`
	Match      identity.Match     `json:"match" yaml:"match"`
	Speaker    *speakers.Speaker  `json:"speaker,omitempty" yaml:"speaker,omitempty"`
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		GroupID: "self",
		Short:   "Show the signed-in principal and their speaker record",
		Long: `Whoami reports the configured credential, the principal read from it
and which speaker record that principal resolves to. Resolution tries the
display name, then the email claim, then the raw login.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, session, err := loadSession(cmd, app)
			if err != nil {
				return err
			}
			_, status := app.Principal(ctx)
			self := session.Self()

			result := Whoami{
				Credential: status,
				Principal:  session.Principal(),
				Match:      self.Match,
				Speaker:    self.Speaker,
			}
			return output.Write(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), result, whoamiToData(result))
		},
	}
}

func whoamiToData(w Whoami) output.Data {
	rows := [][]string{}
	if w.Credential != nil {
		rows = append(rows,
			[]string{"Credential", w.Credential.State.String()},
			[]string{"Summary", w.Credential.Summary},
			[]string{"Admin", yesNo(w.Credential.Admin)},
		)
	}
	rows = append(rows,
		[]string{"Name", w.Principal.Name},
		[]string{"Email", w.Principal.Email},
		[]string{"Login", w.Principal.Login},
		[]string{"Roles", strings.Join(w.Principal.Roles, ",")},
		[]string{"Match", string(w.Match)},
	)
	if w.Speaker != nil {
		rows = append(rows,
			[]string{"Speaker ID", w.Speaker.ID},
			[]string{"Unique ID", w.Speaker.UniqueID},
		)
	}
	return output.Data{Headers: []string{"FIELD", "VALUE"}, Rows: rows}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
