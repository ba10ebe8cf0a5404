// Package roster provides the read-only roster commands.
package roster

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/speakerpool"
	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// Filters holds the search flags shared by list and stats.
type Filters struct {
	Admin     bool
	Query     string
	Topic     string
	Languages []string
	Internal  bool
	External  bool
}

func addFilterFlags(cmd *cobra.Command, f *Filters) {
	cmd.Flags().BoolVar(&f.Admin, "admin", false, "merge every pending delta artifact into the view")
	cmd.Flags().StringVar(&f.Query, "query", "", "match bio, topics, presentations, context, name or company")
	cmd.Flags().StringVar(&f.Topic, "topic", "", "match topics only")
	cmd.Flags().StringSliceVar(&f.Languages, "language", nil, "keep speakers speaking one of these language codes")
	cmd.Flags().BoolVar(&f.Internal, "internal", false, "keep speakers available for internal events")
	cmd.Flags().BoolVar(&f.External, "external", false, "keep speakers available for external events")
}

// criteria converts the flags to search criteria.
func (f *Filters) criteria() (speakers.Criteria, error) {
	c := speakers.Criteria{Query: f.Query, Topic: f.Topic, Languages: f.Languages}
	switch {
	case f.Internal && f.External:
		return c, errors.NewValidationError("external", true, "--internal and --external are mutually exclusive")
	case f.Internal:
		c.Availability = speakers.InternalOnly
	case f.External:
		c.Availability = speakers.ExternalOnly
	}
	return c, nil
}

// load opens a session, loads it and returns the filtered roster.
func load(cmd *cobra.Command, app appcontext.Interface, f *Filters) ([]speakers.Speaker, *speakerpool.LoadReport, error) {
	criteria, err := f.criteria()
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	session, err := app.Session(ctx, f.Admin)
	if err != nil {
		return nil, nil, err
	}
	report, err := session.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	logger := app.Logger()
	for _, failure := range report.Failures() {
		logger.Warn().Err(failure.Err).Str("artifact", failure.Key).Msg("Delta artifact not merged")
	}
	records := speakers.Search(session.Store().All(), criteria)
	if records == nil {
		records = []speakers.Speaker{}
	}
	return records, report, nil
}
