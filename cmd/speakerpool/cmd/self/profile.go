// Package self provides the commands a speaker uses on their own record.
package self

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentstation/speakerpool"
	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// Profile holds the editable record fields as flags.
type Profile struct {
	Name                string
	Email               string
	Company             string
	Topics              string
	Bio                 string
	RecentPresentations string
	Context             string
	ImageURL            string
	LinkedInURL         string
	Languages           []string
	Internal            bool
	External            bool
}

func addProfileFlags(cmd *cobra.Command, p *Profile) {
	cmd.Flags().StringVar(&p.Name, "name", "", "display name")
	cmd.Flags().StringVar(&p.Email, "email", "", "email address")
	cmd.Flags().StringVar(&p.Company, "company", "", "company")
	cmd.Flags().StringVar(&p.Topics, "topics", "", "topics, separated by commas")
	cmd.Flags().StringVar(&p.Bio, "bio", "", "short biography")
	cmd.Flags().StringVar(&p.RecentPresentations, "presentations", "", "recent presentations")
	cmd.Flags().StringVar(&p.Context, "context", "", "where and how you like to speak")
	cmd.Flags().StringVar(&p.ImageURL, "image-url", "", "profile picture URL")
	cmd.Flags().StringVar(&p.LinkedInURL, "linkedin-url", "", "LinkedIn profile URL")
	cmd.Flags().StringSliceVar(&p.Languages, "languages", nil, "language codes you present in, e.g. nl,en")
	cmd.Flags().BoolVar(&p.Internal, "internal", false, "available for internal events")
	cmd.Flags().BoolVar(&p.External, "external", false, "available for external events")
}

// Patch returns a patch holding only the flags set on the command line.
func (p *Profile) Patch(flags *pflag.FlagSet) *speakers.Patch {
	patch := &speakers.Patch{}
	str := func(name, value string) *string {
		if !flags.Changed(name) {
			return nil
		}
		return speakers.String(value)
	}
	patch.Name = str("name", p.Name)
	patch.EmailAddress = str("email", p.Email)
	patch.Company = str("company", p.Company)
	patch.Topics = str("topics", p.Topics)
	patch.Bio = str("bio", p.Bio)
	patch.RecentPresentations = str("presentations", p.RecentPresentations)
	patch.Context = str("context", p.Context)
	patch.ImageURL = str("image-url", p.ImageURL)
	patch.LinkedInURL = str("linkedin-url", p.LinkedInURL)

	if flags.Changed("languages") {
		langs := make(map[string]bool, len(p.Languages))
		for _, l := range p.Languages {
			if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
				langs[l] = true
			}
		}
		patch.Languages = &langs
	}
	if flags.Changed("internal") {
		patch.Internal = speakers.Bool(p.Internal)
	}
	if flags.Changed("external") {
		patch.External = speakers.Bool(p.External)
	}
	return patch
}

// loadSession opens and loads a non-admin session.
func loadSession(cmd *cobra.Command, app appcontext.Interface) (context.Context, *speakerpool.Session, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	session, err := app.Session(ctx, false)
	if err != nil {
		return ctx, nil, err
	}
	report, err := session.Load(ctx)
	if err != nil {
		return ctx, nil, err
	}
	if report.OwnDeltaErr != nil {
		app.Logger().Warn().Err(report.OwnDeltaErr).Str("artifact", report.OwnDeltaKey).Msg("Own delta not merged")
	}
	return ctx, session, nil
}
