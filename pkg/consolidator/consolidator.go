// Package consolidator is the offline job that folds outstanding delta
// artifacts into the canonical speaker collection.
//
// A run fetches the canonical collection, applies every delta under the
// prefix in listing order with a field overlay by uniqueId, writes the
// collection back when at least one delta was applied, and only then clears
// each consumed artifact by overwriting it with {}. A crash between the write
// and the clears re-applies the same overlays on the next run, so no change
// is lost. Artifacts that do not match a speaker, or cannot be read, are left
// in place.
package consolidator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/logging"
	"github.com/agentstation/speakerpool/pkg/metrics"
	"github.com/agentstation/speakerpool/pkg/reconciler"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// emptyArtifact is written over consumed artifacts.
var emptyArtifact = []byte("{}")

// Consolidator runs the batch job against a gateway.
type Consolidator struct {
	gateway blob.Gateway
	options *options
}

// New creates a consolidator.
func New(gateway blob.Gateway, opts ...Option) *Consolidator {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &Consolidator{gateway: gateway, options: o}
}

// Run executes one consolidation. The returned error is fatal for the run:
// the canonical collection could not be loaded, listed or written. Problems
// with single artifacts are logged and reported in the Result.
func (c *Consolidator) Run(ctx context.Context) (*Result, error) {
	o := c.options
	res := &Result{
		RunID:   o.runID,
		DryRun:  o.dryRun,
		Started: time.Now(),
	}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}

	ctx = logging.WithRun(ctx, res.RunID)
	logger := o.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	} else {
		l := logger.With().Str("run_id", res.RunID).Logger()
		logger = &l
	}

	err := c.run(ctx, logger, res)
	res.Duration = time.Since(res.Started)
	c.observe(res, err)

	if err != nil {
		logger.Error().Err(err).Msg("Consolidation failed")
		return res, err
	}
	logger.Info().
		Int("processed", len(res.Processed)).
		Int("cleared", len(res.Cleared)).
		Bool("canonical_written", res.CanonicalWritten).
		Dur("duration", res.Duration).
		Msg("Consolidation finished")
	return res, nil
}

func (c *Consolidator) run(ctx context.Context, logger *zerolog.Logger, res *Result) error {
	o := c.options
	layout := o.layout

	store, err := c.loadCanonical(ctx, layout.CanonicalKey)
	if err != nil {
		return err
	}
	logger.Info().Int("speakers", store.Len()).Str("key", layout.CanonicalKey).Msg("Loaded canonical collection")

	objects, err := c.gateway.List(ctx, layout.DeltaPrefix)
	if err != nil {
		return errors.WrapResource("list", "deltas", layout.DeltaPrefix, err)
	}
	deltas := layout.Deltas(objects)
	res.Listed = len(deltas)
	logger.Info().Int("artifacts", len(deltas)).Str("prefix", layout.DeltaPrefix).Msg("Listed delta artifacts")

	for _, obj := range deltas {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.apply(ctx, logger, store, obj.Name, res)
	}
	res.Speakers = store.Len()

	if len(res.Processed) == 0 {
		logger.Info().Msg("No deltas applied, canonical collection left untouched")
		return nil
	}

	if o.dryRun {
		logger.Info().Int("processed", len(res.Processed)).Msg("Dry run, skipping canonical write and artifact clearing")
		return nil
	}

	body, err := speakers.Encode(store.All())
	if err != nil {
		return errors.WrapParse("json", layout.CanonicalKey, err)
	}
	if err := c.gateway.Put(ctx, layout.CanonicalKey, body); err != nil {
		return errors.WrapResource("write", "canonical", layout.CanonicalKey, err)
	}
	res.CanonicalWritten = true
	logger.Info().Str("key", layout.CanonicalKey).Int("speakers", res.Speakers).Msg("Wrote canonical collection")

	for _, key := range res.Processed {
		if err := c.gateway.Put(ctx, key, emptyArtifact); err != nil {
			logger.Warn().Err(err).Str("artifact", key).Msg("Failed to clear consumed artifact, it will be re-applied next run")
			res.ClearFailed = append(res.ClearFailed, key)
			continue
		}
		res.Cleared = append(res.Cleared, key)
	}
	return nil
}

func (c *Consolidator) loadCanonical(ctx context.Context, key string) (*speakers.Store, error) {
	data, err := c.gateway.Get(ctx, key)
	if err != nil {
		return nil, &errors.LoadError{Key: key, Err: err}
	}
	records, err := speakers.Decode(data)
	if err != nil {
		return nil, &errors.LoadError{Key: key, Err: err}
	}
	return speakers.NewStore(records), nil
}

// apply merges one artifact and files its key in the matching result bucket.
func (c *Consolidator) apply(ctx context.Context, logger *zerolog.Logger, store *speakers.Store, key string, res *Result) {
	log := logger.With().Str("artifact", key).Logger()

	body, err := c.gateway.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch artifact, skipping")
		res.FetchFailed = append(res.FetchFailed, key)
		return
	}

	patch, err := speakers.DecodePatch(body)
	if err != nil {
		log.Warn().Err(err).Msg("Artifact is not valid JSON, skipping")
		res.Invalid = append(res.Invalid, key)
		return
	}
	if patch.IsEmpty() {
		log.Debug().Msg("Artifact is empty, skipping")
		res.Empty = append(res.Empty, key)
		return
	}

	uid, err := identity.ResolveArtifact(key, patch)
	if err != nil {
		log.Warn().Err(err).Msg("Artifact has no identity, skipping")
		res.Invalid = append(res.Invalid, key)
		return
	}

	merged := reconciler.BatchDelta(store, patch,
		reconciler.WithKey(uid),
		reconciler.WithArtifact(key),
		reconciler.WithClock(c.options.now))

	switch merged.Outcome {
	case reconciler.Updated, reconciler.Created:
		log.Info().Str("unique_id", uid).Str("name", merged.Record.Name).Msg("Applied delta")
		res.Processed = append(res.Processed, key)
	case reconciler.Missed:
		log.Warn().Str("unique_id", uid).Msg("No matching speaker, artifact left in place")
		res.Unmatched = append(res.Unmatched, key)
	case reconciler.Skipped:
		res.Empty = append(res.Empty, key)
	default:
		log.Warn().Err(merged.Err).Msg("Delta rejected, skipping")
		res.Invalid = append(res.Invalid, key)
	}
}

func (c *Consolidator) observe(res *Result, err error) {
	if c.options.metrics == nil {
		return
	}
	result := metrics.ResultOK
	switch {
	case err != nil:
		result = metrics.ResultFailed
	case res.DryRun:
		result = metrics.ResultDryRun
	}
	c.options.metrics.ObserveRun(metrics.Run{
		Result:   result,
		Duration: res.Duration,
		Speakers: res.Speakers,
		Artifacts: map[string]int{
			metrics.OutcomeProcessed:   len(res.Processed),
			metrics.OutcomeEmpty:       len(res.Empty),
			metrics.OutcomeInvalid:     len(res.Invalid),
			metrics.OutcomeUnmatched:   len(res.Unmatched),
			metrics.OutcomeFetchFailed: len(res.FetchFailed),
		},
		Cleared:       len(res.Cleared),
		ClearFailures: len(res.ClearFailed),
		Wrote:         res.CanonicalWritten,
	})
}
