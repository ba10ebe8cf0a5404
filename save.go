package speakerpool

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/reconciler"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// SaveError reports that a local change could not be persisted. The session
// keeps the change, so the caller can retry the save.
type SaveError struct {
	Key string
	Err error
}

// Error implements the error interface
func (e *SaveError) Error() string {
	return fmt.Sprintf("saving %s failed: %v", e.Key, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SaveError) Unwrap() error {
	return e.Err
}

// IsSaveError reports whether err is a failed save that can be retried.
func IsSaveError(err error) bool {
	var se *SaveError
	return errors.As(err, &se)
}

// Register creates the principal's speaker record. The record gets a fresh
// id, uniqueId and createdDate; name and email default to the principal's.
// The full record is then written to the principal's delta key. The batch
// job never creates records, so it leaves a registration unmatched; the
// record becomes canonical when an admin session loads it (the admin preset
// creates) and publishes. A principal that already resolves to a speaker
// gets an AlreadyExistsError.
func (s *Session) Register(ctx context.Context, patch *speakers.Patch) (*speakers.Speaker, error) {
	store, err := s.loaded()
	if err != nil {
		return nil, err
	}
	p := s.config.principal
	if p.IsZero() {
		return nil, errors.NewValidationError("principal", nil, "registration needs a signed-in principal")
	}
	if self := s.Self(); self.Registered() {
		return nil, &errors.AlreadyExistsError{Resource: "speaker", ID: self.Speaker.UniqueID}
	}

	draft := registrationPatch(patch, p)
	uid, err := store.NewUniqueID()
	if err != nil {
		return nil, err
	}
	draft.UniqueID = &uid

	res := reconciler.FullReplace(store, draft,
		reconciler.WithTarget(reconciler.ByUniqueID),
		reconciler.WithCreate(true),
		reconciler.WithArtifact("registration"),
		reconciler.WithClock(s.config.now))
	if !res.Accepted() {
		return nil, res.Err
	}
	record := res.Record
	s.resolveSelf(store)

	s.logger().Info().
		Str("id", record.ID).
		Str("unique_id", record.UniqueID).
		Str("name", record.Name).
		Msg("Registered speaker")

	if err := s.putDelta(ctx, record); err != nil {
		return record.Copy(), err
	}
	return record.Copy(), nil
}

// registrationPatch copies patch without identity fields and fills name and
// email from the principal when the patch leaves them blank.
func registrationPatch(patch *speakers.Patch, p identity.Principal) *speakers.Patch {
	draft := &speakers.Patch{}
	if patch != nil {
		c := *patch
		draft = &c
	}
	draft.ID = nil
	draft.UniqueID = nil
	draft.CreatedDate = nil
	draft.LastModified = nil

	if draft.Name == nil || strings.TrimSpace(*draft.Name) == "" {
		draft.Name = speakers.String(p.Name)
	}
	if draft.EmailAddress == nil || *draft.EmailAddress == "" {
		switch {
		case p.Email != "":
			draft.EmailAddress = speakers.String(p.Email)
		case strings.Contains(p.Login, "@"):
			draft.EmailAddress = speakers.String(p.Login)
		}
	}
	return draft
}

// SaveOwnDelta applies the principal's edit to their own record and writes
// the merged record to their delta key. The edit can only target the
// principal's record: any id or uniqueId in patch is ignored. When the write
// fails the local change is kept and a SaveError is returned.
func (s *Session) SaveOwnDelta(ctx context.Context, patch *speakers.Patch) (*reconciler.Result, error) {
	store, err := s.loaded()
	if err != nil {
		return nil, err
	}
	self := s.Self()
	if !self.Registered() {
		return nil, &errors.IdentityError{Field: "id", Value: s.config.principal.Name}
	}
	if patch.IsEmpty() {
		return &reconciler.Result{Outcome: reconciler.Skipped, Err: errors.ErrEmptyArtifact}, nil
	}

	edit := *patch
	edit.ID = speakers.String(self.Speaker.ID)
	edit.UniqueID = nil

	key := s.config.layout.DeltaKey(self.Speaker.UniqueID)
	res := reconciler.OwnDelta(store, &edit,
		reconciler.WithArtifact(key),
		reconciler.WithClock(s.config.now))
	if !res.Accepted() {
		return res, res.Err
	}
	s.resolveSelf(store)

	if err := s.putDelta(ctx, res.Record); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Session) putDelta(ctx context.Context, record *speakers.Speaker) error {
	key := s.config.layout.DeltaKey(record.UniqueID)
	body, err := speakers.EncodeRecord(record)
	if err != nil {
		return &SaveError{Key: key, Err: err}
	}
	if err := s.gateway.Put(ctx, key, body); err != nil {
		s.logger().Warn().Err(err).Str("artifact", key).Msg("Failed to save delta, local change kept")
		return &SaveError{Key: key, Err: err}
	}
	s.logger().Info().Str("artifact", key).Msg("Saved delta")
	return nil
}

// Publish overwrites the canonical collection with the session's store
// through the Asset-Path scheme. Only admin sessions may publish.
func (s *Session) Publish(ctx context.Context) (int, error) {
	if !s.config.admin {
		return 0, errors.ErrForbidden
	}
	store, err := s.loaded()
	if err != nil {
		return 0, err
	}
	if s.config.assets == nil {
		return 0, errors.NewConfigError("session", "publish needs an asset gateway", nil)
	}

	key := s.config.layout.CanonicalKey
	records := store.All()
	body, err := speakers.Encode(records)
	if err != nil {
		return 0, errors.WrapParse("json", key, err)
	}
	if err := s.config.assets.PutAsset(ctx, key, body); err != nil {
		return 0, errors.WrapResource("publish", "canonical", key, err)
	}
	s.logger().Info().Str("key", key).Int("speakers", len(records)).Msg("Published canonical collection")
	return len(records), nil
}
