package publish

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/speakerpool"
	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/internal/blob/memory"
	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

const pendingKey = blob.DefaultDeltaPrefix + "u2.json"

func seed(t *testing.T) *memory.Store {
	t.Helper()
	body, err := speakers.Encode([]speakers.Speaker{
		{ID: "speaker1", UniqueID: "u1", Name: "Ann"},
		{ID: "speaker2", UniqueID: "u2", Name: "Bob"},
	})
	require.NoError(t, err)
	return memory.New(map[string][]byte{
		blob.DefaultCanonicalKey: body,
		pendingKey:               []byte(`{"id":"speaker2","uniqueId":"u2","name":"Bob","company":"New"}`),
	})
}

func run(t *testing.T, store *memory.Store, admin bool) (string, error) {
	t.Helper()
	app := &appcontext.Mock{
		SessionFunc: func(_ context.Context, _ bool) (*speakerpool.Session, error) {
			return speakerpool.NewSession(store,
				speakerpool.WithAdmin(admin),
				speakerpool.WithAssets(store),
			), nil
		},
	}
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return out.String(), err
}

func TestPublishWritesMergedCollection(t *testing.T) {
	store := seed(t)

	out, err := run(t, store, true)
	require.NoError(t, err)
	assert.Equal(t, "published 2 speakers to "+blob.DefaultCanonicalKey+" (1 deltas merged)\n", out)

	records, err := speakers.Decode(store.Snapshot()[blob.DefaultCanonicalKey])
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "New", records[1].Company)
	assert.NotEqual(t, "{}", string(store.Snapshot()[pendingKey]), "publish does not clear deltas")
}

func TestPublishNeedsAdmin(t *testing.T) {
	store := seed(t)

	_, err := run(t, store, false)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	assert.Empty(t, store.Puts())
}
