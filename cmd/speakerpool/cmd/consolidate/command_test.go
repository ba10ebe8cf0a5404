package consolidate

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/internal/blob/memory"
	"github.com/agentstation/speakerpool/internal/notify"
	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/consolidator"
	"github.com/agentstation/speakerpool/pkg/errors"
)

type recordingNotifier struct {
	reports []notify.Report
}

func (r *recordingNotifier) Notify(_ context.Context, report notify.Report) error {
	r.reports = append(r.reports, report)
	return nil
}

const (
	canonicalKey = blob.DefaultCanonicalKey
	keyU1        = blob.DefaultDeltaPrefix + "u1.json"
	keyZZ        = blob.DefaultDeltaPrefix + "zz.json"

	canonicalBody = `[{"id":"speaker1","uniqueId":"u1","name":"Ann","internal":false,"external":false}]`
)

func newApp(store *memory.Store, n *recordingNotifier) (*appcontext.Mock, *bool) {
	pushed := false
	return &appcontext.Mock{
		OutputFormatFunc: func() string { return "table" },
		ConsolidatorFunc: func(_ context.Context, dryRun bool) (*consolidator.Consolidator, error) {
			return consolidator.New(store, consolidator.WithDryRun(dryRun), consolidator.WithRunID("r1")), nil
		},
		PushMetricsFunc: func(context.Context) error {
			pushed = true
			return nil
		},
		NotifierFunc: func() (notify.Notifier, error) { return n, nil },
	}, &pushed
}

func execute(t *testing.T, app appcontext.Interface, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return out.String(), err
}

func TestConsolidatePrintsSummaryAndPushesMetrics(t *testing.T) {
	store := memory.New(map[string][]byte{
		canonicalKey: []byte(canonicalBody),
		keyU1:        []byte(`{"uniqueId":"u1","company":"X"}`),
	})
	n := &recordingNotifier{}
	app, pushed := newApp(store, n)

	out, err := execute(t, app)
	require.NoError(t, err)

	assert.Contains(t, out, "run r1: listed=1 processed=1")
	assert.True(t, *pushed)
	assert.Empty(t, n.reports, "a clean run is not mailed without --notify")
	assert.JSONEq(t, `{}`, string(store.Snapshot()[keyU1]))
}

func TestConsolidateDryRun(t *testing.T) {
	store := memory.New(map[string][]byte{
		canonicalKey: []byte(canonicalBody),
		keyU1:        []byte(`{"uniqueId":"u1","company":"X"}`),
	})
	app, _ := newApp(store, &recordingNotifier{})

	out, err := execute(t, app, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "(dry run)")
	assert.Empty(t, store.Puts())
}

func TestConsolidateMailsWhenAttentionIsNeeded(t *testing.T) {
	store := memory.New(map[string][]byte{
		canonicalKey: []byte(canonicalBody),
		keyZZ:        []byte(`{"uniqueId":"zz","company":"X"}`),
	})
	n := &recordingNotifier{}
	app, _ := newApp(store, n)

	out, err := execute(t, app)
	require.NoError(t, err)

	assert.Contains(t, out, "Unmatched (left in place)")
	require.Len(t, n.reports, 1)
	assert.Equal(t, "Speaker pool consolidation r1: needs attention", n.reports[0].Subject)
	assert.Contains(t, n.reports[0].Text, keyZZ)
}

func TestConsolidateNotifyFlag(t *testing.T) {
	store := memory.New(map[string][]byte{canonicalKey: []byte(canonicalBody)})
	n := &recordingNotifier{}
	app, _ := newApp(store, n)

	_, err := execute(t, app, "--notify")
	require.NoError(t, err)

	require.Len(t, n.reports, 1)
	assert.Equal(t, "Speaker pool consolidation r1: ok", n.reports[0].Subject)
}

func TestConsolidateFatalRun(t *testing.T) {
	store := memory.New(nil)
	n := &recordingNotifier{}
	app, pushed := newApp(store, n)

	_, err := execute(t, app)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	assert.True(t, *pushed, "metrics are pushed for failed runs too")
	require.Len(t, n.reports, 1)
	assert.Contains(t, n.reports[0].Subject, "failed")
	assert.Contains(t, n.reports[0].Text, "Error: ")
}

func TestConsolidateJSONOutput(t *testing.T) {
	store := memory.New(map[string][]byte{canonicalKey: []byte(canonicalBody)})
	app, _ := newApp(store, &recordingNotifier{})
	app.OutputFormatFunc = func() string { return "json" }

	out, err := execute(t, app)
	require.NoError(t, err)

	var res consolidator.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "r1", res.RunID)
	assert.False(t, res.CanonicalWritten)
}

func TestConsolidateConsolidatorError(t *testing.T) {
	_, err := execute(t, &appcontext.Mock{})
	assert.Error(t, err)
}
