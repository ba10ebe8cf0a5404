package speakerpool

import (
	"context"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/speakerpool/internal/blob/memory"
	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/consolidator"
	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/logging"
	"github.com/agentstation/speakerpool/pkg/reconciler"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

const deltas = blob.DefaultDeltaPrefix

func clock() utc.Time {
	return utc.Time{Time: time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)}
}

func seed(t *testing.T, extra map[string][]byte) *memory.Store {
	t.Helper()
	canonical, err := speakers.Encode([]speakers.Speaker{
		{ID: "speaker1", UniqueID: "u1", Name: "Ann", EmailAddress: "ann@example.com", Company: "X", Topics: "AI"},
		{ID: "speaker2", UniqueID: "u2", Name: "Bob", Company: "Z", Bio: "old"},
	})
	require.NoError(t, err)
	objects := map[string][]byte{blob.DefaultCanonicalKey: canonical}
	for k, v := range extra {
		objects[k] = v
	}
	return memory.New(objects)
}

func session(t *testing.T, store *memory.Store, opts ...Option) *Session {
	t.Helper()
	tl := logging.NewTestLogger(t)
	return NewSession(store, append([]Option{WithClock(clock), WithLogger(tl.Logger)}, opts...)...)
}

func load(t *testing.T, s *Session) *LoadReport {
	t.Helper()
	report, err := s.Load(context.Background())
	require.NoError(t, err)
	return report
}

func TestLoadCanonicalFailureIsFatal(t *testing.T) {
	s := session(t, memory.New(nil))

	report, err := s.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.IsLoadError(err))
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, StateFailed, s.State())
	assert.Nil(t, s.Store())
	assert.Equal(t, []State{StateLoadCanonical, StateFailed}, s.History())
}

func TestLoadAnonymous(t *testing.T) {
	s := session(t, seed(t, nil))

	report := load(t, s)
	assert.Equal(t, 2, report.Speakers)
	assert.False(t, report.Self.Registered())
	assert.Equal(t, identity.MatchNone, report.Self.Match)
	assert.Nil(t, report.OwnDelta)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, []State{StateLoadCanonical, StateResolveSelf, StateReady}, s.History())
}

func TestLoadMergesOwnDelta(t *testing.T) {
	store := seed(t, map[string][]byte{
		deltas + "u1.json": []byte(`{"id":"speaker1","company":"Y"}`),
		deltas + "u2.json": []byte(`{"id":"speaker2","company":"not mine"}`),
	})
	s := session(t, store, WithPrincipal(identity.Principal{Name: "ann"}))

	var updated []string
	s.OnSpeakerUpdated(func(old, new speakers.Speaker) {
		updated = append(updated, old.Company+"->"+new.Company)
	})

	report := load(t, s)
	require.True(t, report.Self.Registered())
	assert.Equal(t, identity.MatchName, report.Self.Match)
	assert.Equal(t, deltas+"u1.json", report.OwnDeltaKey)
	require.NotNil(t, report.OwnDelta)
	assert.Equal(t, reconciler.Updated, report.OwnDelta.Outcome)
	assert.NoError(t, report.OwnDeltaErr)

	ann, _ := s.Store().FindByID("speaker1")
	assert.Equal(t, "Y", ann.Company)
	assert.Equal(t, "AI", ann.Topics)
	assert.Equal(t, "Y", s.Self().Speaker.Company)

	bob, _ := s.Store().FindByID("speaker2")
	assert.Equal(t, "Z", bob.Company, "other deltas are only merged in admin mode")
	assert.Equal(t, []string{"X->Y"}, updated)
	assert.Equal(t, []State{StateLoadCanonical, StateResolveSelf, StateMergeOwnDelta, StateReady}, s.History())
}

func TestLoadOwnDeltaEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		delta   []byte
		wantErr bool
	}{
		{name: "missing"},
		{name: "empty", delta: []byte(`{}`)},
		{name: "other id", delta: []byte(`{"id":"speaker2","company":"Y"}`), wantErr: true},
		{name: "no id", delta: []byte(`{"company":"Y"}`), wantErr: true},
		{name: "malformed", delta: []byte(`{"id":`), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extra := map[string][]byte{}
			if tt.delta != nil {
				extra[deltas+"u1.json"] = tt.delta
			}
			s := session(t, seed(t, extra), WithPrincipal(identity.Principal{Email: "ann@example.com"}))

			report := load(t, s)
			assert.Equal(t, identity.MatchEmailClaim, report.Self.Match)
			assert.Nil(t, report.OwnDelta)
			if tt.wantErr {
				assert.Error(t, report.OwnDeltaErr)
			} else {
				assert.NoError(t, report.OwnDeltaErr)
			}
			ann, _ := s.Store().FindByID("speaker1")
			assert.Equal(t, "X", ann.Company)
			assert.Equal(t, StateReady, s.State())
		})
	}
}

func TestLoadAdminMergesAllDeltas(t *testing.T) {
	store := seed(t, map[string][]byte{
		deltas:              nil,
		deltas + "a.json":   []byte(`{"uniqueId":"u2","name":"Bob","company":"Q"}`),
		deltas + "b.json":   []byte(`{"id":"speaker9","uniqueId":"u9","name":"Nia","topics":"Go"}`),
		deltas + "c.json":   []byte(`{"uniqueId": `),
		deltas + "d.json":   []byte(`{}`),
		deltas + "e.json":   []byte(`{"name":"Nobody"}`),
		deltas + "old/":     nil,
		"elsewhere/u1.json": []byte(`{"uniqueId":"u1","company":"nope"}`),
	})
	s := session(t, store, WithAdmin(true), WithAssets(store))

	var added []string
	s.OnSpeakerAdded(func(sp speakers.Speaker) { added = append(added, sp.Name) })

	report := load(t, s)
	require.Len(t, report.Artifacts, 5)
	assert.Equal(t, 2, report.Applied())
	assert.Equal(t, 3, report.Speakers)

	failures := report.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, deltas+"c.json", failures[0].Key)
	assert.Equal(t, deltas+"e.json", failures[1].Key)
	assert.ErrorIs(t, failures[1].Err, errors.ErrInvalidArtifact)

	bob, ok := s.Store().FindByUniqueID("u2")
	require.True(t, ok)
	assert.Equal(t, "Q", bob.Company)
	assert.Empty(t, bob.Bio, "admin deltas replace the whole record")
	assert.Equal(t, "speaker2", bob.ID)

	nia, ok := s.Store().FindByUniqueID("u9")
	require.True(t, ok)
	assert.Equal(t, "Go", nia.Topics)
	assert.Equal(t, "2025-03-04T05:06:07Z", nia.CreatedDate)
	assert.Equal(t, []string{"Nia"}, added)

	ann, _ := s.Store().FindByUniqueID("u1")
	assert.Equal(t, "X", ann.Company)
	assert.Equal(t, []State{StateLoadCanonical, StateResolveSelf, StateMergeAllDeltas, StateReady}, s.History())
}

func TestLoadAdminContinuesPastFetchFailure(t *testing.T) {
	store := seed(t, map[string][]byte{
		deltas + "a.json": []byte(`{"uniqueId":"u1","name":"Ann","company":"A"}`),
		deltas + "b.json": []byte(`{"uniqueId":"u2","name":"Bob","company":"B"}`),
	})
	store.FailGet(deltas+"a.json", assert.AnError)
	s := session(t, store, WithAdmin(true))

	report := load(t, s)
	require.Len(t, report.Failures(), 1)
	assert.ErrorIs(t, report.Failures()[0].Err, assert.AnError)
	bob, _ := s.Store().FindByUniqueID("u2")
	assert.Equal(t, "B", bob.Company)
}

func TestStateHooks(t *testing.T) {
	s := session(t, seed(t, nil))
	var seen []string
	s.OnStateChange(func(from, to State) { seen = append(seen, from.String()+">"+to.String()) })

	load(t, s)
	assert.Equal(t, []string{"idle>load-canonical", "load-canonical>resolve-self", "resolve-self>ready"}, seen)
}

func TestOperationsNeedLoad(t *testing.T) {
	s := session(t, seed(t, nil), WithAdmin(true), WithPrincipal(identity.Principal{Name: "Ann"}))
	ctx := context.Background()

	_, err := s.Register(ctx, nil)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.SaveOwnDelta(ctx, &speakers.Patch{Company: speakers.String("Y")})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.Publish(ctx)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestRegister(t *testing.T) {
	store := seed(t, nil)
	p := identity.Principal{Name: "Nia Long", Login: "nia@example.com"}
	s := session(t, store, WithPrincipal(p))
	load(t, s)
	ctx := context.Background()

	rec, err := s.Register(ctx, &speakers.Patch{
		ID:      speakers.String("speaker1"),
		Company: speakers.String("Acme"),
	})
	require.NoError(t, err)
	assert.Equal(t, "speaker3", rec.ID)
	assert.Len(t, rec.UniqueID, speakers.UniqueIDLength)
	assert.Equal(t, "Nia Long", rec.Name)
	assert.Equal(t, "nia@example.com", rec.EmailAddress)
	assert.Equal(t, "Acme", rec.Company)
	assert.Equal(t, "2025-03-04T05:06:07Z", rec.CreatedDate)
	assert.Equal(t, 3, s.Store().Len())

	self := s.Self()
	require.True(t, self.Registered())
	assert.Equal(t, rec.UniqueID, self.Speaker.UniqueID)

	body, err := store.Get(ctx, deltas+rec.UniqueID+".json")
	require.NoError(t, err)
	saved, err := speakers.DecodePatch(body)
	require.NoError(t, err)
	assert.Equal(t, "speaker3", saved.IDValue())

	_, err = s.Register(ctx, nil)
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestRegistrationBecomesCanonicalThroughAdminPublish(t *testing.T) {
	ctx := context.Background()
	store := seed(t, nil)
	cleo := identity.Principal{Name: "Cleo", Email: "cleo@example.com"}

	s := session(t, store, WithPrincipal(cleo))
	load(t, s)
	rec, err := s.Register(ctx, &speakers.Patch{Company: speakers.String("Acme")})
	require.NoError(t, err)
	key := deltas + rec.UniqueID + ".json"

	// The batch job does not create records.
	tl := logging.NewTestLogger(t)
	res, err := consolidator.New(store, consolidator.WithLogger(tl.Logger)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, res.Unmatched)
	assert.False(t, res.CanonicalWritten)

	admin := session(t, store, WithAdmin(true), WithAssets(store))
	report := load(t, admin)
	require.Len(t, report.Artifacts, 1)
	require.NotNil(t, report.Artifacts[0].Result)
	assert.Equal(t, reconciler.Created, report.Artifacts[0].Result.Outcome)

	n, err := admin.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records, err := speakers.Decode(store.Snapshot()[blob.DefaultCanonicalKey])
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, rec.UniqueID, records[2].UniqueID)
	assert.Equal(t, "Acme", records[2].Company)

	fresh := session(t, store, WithPrincipal(cleo))
	report = load(t, fresh)
	require.True(t, report.Self.Registered())
	assert.Equal(t, rec.ID, report.Self.Speaker.ID)
	assert.Equal(t, rec.UniqueID, report.Self.Speaker.UniqueID)
}

func TestRegisterNeedsPrincipal(t *testing.T) {
	s := session(t, seed(t, nil))
	load(t, s)
	_, err := s.Register(context.Background(), nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestSaveOwnDelta(t *testing.T) {
	store := seed(t, nil)
	s := session(t, store, WithPrincipal(identity.Principal{Name: "Ann"}))
	load(t, s)
	ctx := context.Background()

	res, err := s.SaveOwnDelta(ctx, &speakers.Patch{
		ID:       speakers.String("speaker2"),
		UniqueID: speakers.String("u2"),
		Company:  speakers.String("Y"),
	})
	require.NoError(t, err)
	assert.Equal(t, reconciler.Updated, res.Outcome)
	assert.Equal(t, "speaker1", res.Record.ID, "edits only ever target the principal's record")

	bob, _ := s.Store().FindByID("speaker2")
	assert.Equal(t, "Z", bob.Company)

	body, err := store.Get(ctx, deltas+"u1.json")
	require.NoError(t, err)
	assert.Contains(t, string(body), `"company": "Y"`)
	assert.Contains(t, string(body), `"topics": "AI"`)

	// the saved delta is what the next session overlays
	next := session(t, store, WithPrincipal(identity.Principal{Name: "Ann"}))
	report := load(t, next)
	require.NotNil(t, report.OwnDelta)
	assert.Equal(t, "Y", report.Self.Speaker.Company)
}

func TestSaveOwnDeltaFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unregistered", func(t *testing.T) {
		s := session(t, seed(t, nil), WithPrincipal(identity.Principal{Name: "Nobody"}))
		load(t, s)
		_, err := s.SaveOwnDelta(ctx, &speakers.Patch{Company: speakers.String("Y")})
		assert.True(t, errors.IsUnknownSpeaker(err))
	})

	t.Run("empty", func(t *testing.T) {
		store := seed(t, nil)
		s := session(t, store, WithPrincipal(identity.Principal{Name: "Ann"}))
		load(t, s)
		res, err := s.SaveOwnDelta(ctx, &speakers.Patch{})
		require.NoError(t, err)
		assert.Equal(t, reconciler.Skipped, res.Outcome)
		assert.Empty(t, store.Puts())
	})

	t.Run("write fails", func(t *testing.T) {
		store := seed(t, nil)
		store.FailPut(deltas+"u1.json", assert.AnError)
		s := session(t, store, WithPrincipal(identity.Principal{Name: "Ann"}))
		load(t, s)

		res, err := s.SaveOwnDelta(ctx, &speakers.Patch{Company: speakers.String("Y")})
		require.Error(t, err)
		assert.True(t, IsSaveError(err))
		assert.ErrorIs(t, err, assert.AnError)
		assert.True(t, res.Accepted())

		ann, _ := s.Store().FindByID("speaker1")
		assert.Equal(t, "Y", ann.Company, "local change kept for retry")
	})
}

func TestPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("forbidden", func(t *testing.T) {
		store := seed(t, nil)
		s := session(t, store, WithAssets(store))
		load(t, s)
		_, err := s.Publish(ctx)
		assert.ErrorIs(t, err, errors.ErrForbidden)
		assert.Empty(t, store.Puts())
	})

	t.Run("no asset gateway", func(t *testing.T) {
		s := session(t, seed(t, nil), WithAdmin(true))
		load(t, s)
		_, err := s.Publish(ctx)
		var ce *errors.ConfigError
		assert.ErrorAs(t, err, &ce)
	})

	t.Run("admin", func(t *testing.T) {
		store := seed(t, map[string][]byte{
			deltas + "u2.json": []byte(`{"uniqueId":"u2","name":"Bob","company":"Q"}`),
		})
		s := session(t, store, WithAdmin(true), WithAssets(store))
		load(t, s)

		n, err := s.Publish(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{blob.DefaultCanonicalKey}, store.Puts())

		records, err := speakers.Decode(store.Snapshot()[blob.DefaultCanonicalKey])
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Q", records[1].Company)
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "merge-all-deltas", StateMergeAllDeltas.String())
	assert.Equal(t, "unknown", State(99).String())
}
