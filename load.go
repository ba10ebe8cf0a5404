package speakerpool

import (
	"context"

	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/logging"
	"github.com/agentstation/speakerpool/pkg/reconciler"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// ArtifactReport is what happened to one delta artifact during Load.
type ArtifactReport struct {
	Key string
	// Result is nil when the artifact could not be fetched, parsed or attributed.
	Result *reconciler.Result
	// Err is the fetch, parse or merge error, if any.
	Err error
}

// Applied reports whether the artifact changed the store.
func (a ArtifactReport) Applied() bool {
	return a.Result != nil && a.Result.Accepted()
}

// LoadReport describes a completed Load.
type LoadReport struct {
	// Speakers is the store size once Ready.
	Speakers int
	// Self is the principal's resolution after the own delta merge.
	Self identity.Resolution
	// OwnDeltaKey is the key the principal's own delta lives under, when registered.
	OwnDeltaKey string
	// OwnDelta is the own delta merge, nil when there was nothing to merge.
	OwnDelta *reconciler.Result
	// OwnDeltaErr is set when the own delta could not be fetched or applied.
	OwnDeltaErr error
	// Artifacts lists the admin merge in listing order.
	Artifacts []ArtifactReport
}

// Failures returns the artifacts that could not be applied. Empty artifacts
// are not failures.
func (r *LoadReport) Failures() []ArtifactReport {
	var out []ArtifactReport
	for _, a := range r.Artifacts {
		if a.Err != nil {
			out = append(out, a)
		}
	}
	return out
}

// Applied counts the artifacts that changed the store.
func (r *LoadReport) Applied() int {
	n := 0
	for _, a := range r.Artifacts {
		if a.Applied() {
			n++
		}
	}
	return n
}

// Load runs the session state machine to Ready. Only a failure to load the
// canonical collection is returned; the session then stays Failed and
// exposes no store. Problems with single deltas are logged and reported.
func (s *Session) Load(ctx context.Context) (*LoadReport, error) {
	ctx = logging.WithOperation(ctx, "load")
	logger := s.logger()
	report := &LoadReport{}

	s.transition(StateLoadCanonical)
	store, err := s.loadCanonical(ctx)
	if err != nil {
		s.transition(StateFailed)
		logger.Error().Err(err).Str("key", s.config.layout.CanonicalKey).Msg("Failed to load canonical collection")
		return nil, err
	}
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
	logger.Info().Int("speakers", store.Len()).Msg("Loaded canonical collection")

	s.transition(StateResolveSelf)
	self := s.resolveSelf(store)

	if self.Registered() {
		s.transition(StateMergeOwnDelta)
		report.OwnDeltaKey = s.config.layout.DeltaKey(self.Speaker.UniqueID)
		report.OwnDelta, report.OwnDeltaErr = s.mergeOwnDelta(ctx, store, self.Speaker, report.OwnDeltaKey)
		self = s.resolveSelf(store)
	}

	if s.config.admin {
		s.transition(StateMergeAllDeltas)
		report.Artifacts = s.mergeAllDeltas(ctx, store)
		self = s.resolveSelf(store)
	}

	report.Self = self
	report.Speakers = store.Len()
	s.transition(StateReady)
	logger.Info().
		Int("speakers", report.Speakers).
		Str("self", string(self.Match)).
		Int("applied", report.Applied()).
		Int("failures", len(report.Failures())).
		Msg("Session ready")
	return report, nil
}

func (s *Session) loadCanonical(ctx context.Context) (*speakers.Store, error) {
	key := s.config.layout.CanonicalKey
	data, err := s.gateway.Get(ctx, key)
	if err != nil {
		return nil, &errors.LoadError{Key: key, Err: err}
	}
	records, err := speakers.Decode(data)
	if err != nil {
		return nil, &errors.LoadError{Key: key, Err: err}
	}

	opts := []speakers.StoreOption{speakers.WithChangeHook(s.hooks.triggerChange)}
	for _, hook := range s.config.changeHooks {
		opts = append(opts, speakers.WithChangeHook(hook))
	}
	return speakers.NewStore(records, opts...), nil
}

func (s *Session) resolveSelf(store *speakers.Store) identity.Resolution {
	var res identity.Resolution
	if s.config.principal.IsZero() {
		res = identity.Resolution{Match: identity.MatchNone}
	} else {
		res = identity.NewResolver(store).Resolve(s.config.principal)
	}
	s.mu.Lock()
	s.self = res
	s.mu.Unlock()
	return res
}

// mergeOwnDelta overlays the principal's pending edit. A missing or empty
// artifact is the normal state and returns a nil result.
func (s *Session) mergeOwnDelta(ctx context.Context, store *speakers.Store, self *speakers.Speaker, key string) (*reconciler.Result, error) {
	log := s.logger().With().Str("artifact", key).Str("unique_id", self.UniqueID).Logger()

	data, err := s.gateway.Get(ctx, key)
	if errors.IsNotFound(err) {
		log.Debug().Msg("No own delta")
		return nil, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch own delta, showing canonical record")
		return nil, err
	}

	patch, err := speakers.DecodePatch(data)
	if err != nil {
		log.Warn().Err(err).Msg("Own delta is not valid JSON, ignoring it")
		return nil, err
	}
	if patch.IsEmpty() {
		log.Debug().Msg("Own delta is empty")
		return nil, nil
	}
	if id := patch.IDValue(); id != self.ID {
		err := &errors.ValidationError{
			Field:   "id",
			Value:   id,
			Message: "own delta does not carry the principal's id " + self.ID,
			Err:     errors.ErrInvalidArtifact,
		}
		log.Warn().Err(err).Msg("Ignoring own delta")
		return nil, err
	}

	res := reconciler.OwnDelta(store, patch,
		reconciler.WithArtifact(key),
		reconciler.WithClock(s.config.now))
	if !res.Accepted() {
		log.Warn().Err(res.Err).Stringer("outcome", res.Outcome).Msg("Own delta not applied")
		return res, res.Err
	}
	log.Info().Msg("Applied own delta")
	return res, nil
}

// mergeAllDeltas applies every artifact under the delta prefix, one at a
// time in listing order, and never stops on a single failure.
func (s *Session) mergeAllDeltas(ctx context.Context, store *speakers.Store) []ArtifactReport {
	layout := s.config.layout
	logger := s.logger()

	objects, err := s.gateway.List(ctx, layout.DeltaPrefix)
	if err != nil {
		logger.Warn().Err(err).Str("prefix", layout.DeltaPrefix).Msg("Failed to list delta artifacts")
		return []ArtifactReport{{Key: layout.DeltaPrefix, Err: errors.WrapResource("list", "deltas", layout.DeltaPrefix, err)}}
	}

	deltas := layout.Deltas(objects)
	reports := make([]ArtifactReport, 0, len(deltas))
	for _, obj := range deltas {
		reports = append(reports, s.mergeArtifact(ctx, store, obj.Name))
	}
	return reports
}

func (s *Session) mergeArtifact(ctx context.Context, store *speakers.Store, key string) ArtifactReport {
	log := s.logger().With().Str("artifact", key).Logger()
	report := ArtifactReport{Key: key}

	data, err := s.fetchArtifact(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch artifact, skipping")
		report.Err = err
		return report
	}
	patch, err := speakers.DecodePatch(data)
	if err != nil {
		log.Warn().Err(err).Msg("Artifact is not valid JSON, skipping")
		report.Err = err
		return report
	}
	if patch.IsEmpty() {
		report.Result = &reconciler.Result{Outcome: reconciler.Skipped, Err: errors.ErrEmptyArtifact}
		return report
	}
	uid, err := identity.ResolveArtifact(key, patch)
	if err != nil {
		log.Warn().Err(err).Msg("Artifact has no identity, skipping")
		report.Err = err
		return report
	}

	res := reconciler.AdminDelta(store, patch,
		reconciler.WithKey(uid),
		reconciler.WithArtifact(key),
		reconciler.WithClock(s.config.now))
	report.Result = res
	report.Err = res.Err
	if res.Accepted() {
		log.Debug().Str("unique_id", uid).Stringer("outcome", res.Outcome).Msg("Applied delta")
	} else {
		log.Warn().Err(res.Err).Stringer("outcome", res.Outcome).Msg("Delta not applied")
	}
	return report
}

func (s *Session) fetchArtifact(ctx context.Context, key string) ([]byte, error) {
	if s.config.assets != nil {
		return s.config.assets.GetAsset(ctx, key)
	}
	return s.gateway.Get(ctx, key)
}
