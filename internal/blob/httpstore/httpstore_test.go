package httpstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/speakerpool/internal/auth"
	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/errors"
)

// fakeBucket serves objects under /o/ and the admin endpoint under /admin.
type fakeBucket struct {
	mu       sync.Mutex
	objects  map[string]string
	requests []string
	tokens   []string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	b.tokens = append(b.tokens, r.Header.Get("Authorization"))

	var key string
	switch {
	case r.URL.Path == "/admin":
		key = r.Header.Get(AssetPathHeader)
	case r.URL.Path == "/o/" && r.Method == http.MethodGet:
		prefix := r.URL.Query().Get("prefix")
		names := make([]string, 0, len(b.objects))
		for k := range b.objects {
			if strings.HasPrefix(k, prefix) {
				names = append(names, k)
			}
		}
		sort.Strings(names)
		var l listing
		for _, n := range names {
			l.Objects = append(l.Objects, blob.Object{Name: n})
		}
		_ = json.NewEncoder(w).Encode(l)
		return
	default:
		key = strings.TrimPrefix(r.URL.Path, "/o/")
	}

	switch r.Method {
	case http.MethodGet:
		v, ok := b.objects[key]
		if !ok {
			http.Error(w, "ObjectNotFound", http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, v)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.objects[key] = string(body)
		w.WriteHeader(http.StatusOK)
	}
}

func newFixture(t *testing.T, token string, opts ...Option) (*Store, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string]string{
		"conclusion-assets/Sprekerpool.json": `[]`,
		"conclusion-assets/deltas/a.json":    `{"uniqueId":"a"}`,
		"conclusion-assets/deltas/b.json":    `{}`,
	}}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithAdminURL(srv.URL + "/admin"),
		WithCredentials(auth.StaticToken(token)),
		WithHTTPClient(srv.Client()),
	}, opts...)
	s, err := New(srv.URL+"/o", opts...)
	require.NoError(t, err)
	return s, bucket
}

func TestGetPutList(t *testing.T) {
	ctx := context.Background()
	s, bucket := newFixture(t, "tok")

	got, err := s.Get(ctx, "conclusion-assets/deltas/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uniqueId":"a"}`, string(got))

	_, err = s.Get(ctx, "conclusion-assets/deltas/nope.json")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, s.Put(ctx, "conclusion-assets/deltas/c.json", []byte(`{"uniqueId":"c"}`)))
	assert.Equal(t, `{"uniqueId":"c"}`, bucket.objects["conclusion-assets/deltas/c.json"])
	assert.Equal(t, "Bearer tok", bucket.tokens[len(bucket.tokens)-1])

	list, err := s.List(ctx, "conclusion-assets/deltas/")
	require.NoError(t, err)
	assert.Equal(t, []blob.Object{
		{Name: "conclusion-assets/deltas/a.json"},
		{Name: "conclusion-assets/deltas/b.json"},
		{Name: "conclusion-assets/deltas/c.json"},
	}, list)
}

func TestAssetPathScheme(t *testing.T) {
	ctx := context.Background()
	s, bucket := newFixture(t, "tok")

	got, err := s.GetAsset(ctx, "conclusion-assets/deltas/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uniqueId":"a"}`, string(got))

	require.NoError(t, s.PutAsset(ctx, "conclusion-assets/Sprekerpool.json", []byte(`[{"id":"1"}]`)))
	assert.Equal(t, `[{"id":"1"}]`, bucket.objects["conclusion-assets/Sprekerpool.json"])
	assert.Equal(t, []string{"GET /admin", "PUT /admin"}, bucket.requests)
}

func TestProtectedCallsNeedCredential(t *testing.T) {
	ctx := context.Background()
	s, bucket := newFixture(t, "")

	assert.ErrorIs(t, s.Put(ctx, "k", []byte("{}")), errors.ErrCredentialRequired)
	assert.ErrorIs(t, s.PutAsset(ctx, "k", []byte("{}")), errors.ErrCredentialRequired)
	_, err := s.GetAsset(ctx, "k")
	assert.ErrorIs(t, err, errors.ErrCredentialRequired)
	assert.Empty(t, bucket.requests, "nothing is sent without a credential")

	_, err = s.Get(ctx, "conclusion-assets/Sprekerpool.json")
	assert.NoError(t, err, "plain reads are public by default")

	protected, bucket2 := newFixture(t, "", WithProtectedReads(true))
	_, err = protected.Get(ctx, "conclusion-assets/Sprekerpool.json")
	assert.ErrorIs(t, err, errors.ErrCredentialRequired)
	_, err = protected.List(ctx, "")
	assert.ErrorIs(t, err, errors.ErrCredentialRequired)
	assert.Empty(t, bucket2.requests)
}

func TestNewValidatesURLs(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)

	_, err = New("https://example.com/o/", WithAdminURL("/relative"))
	assert.Error(t, err)

	s, err := New("https://example.com/o")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/o/a%20b/c.json", s.objectURL("/a b/c.json"))

	_, err = s.GetAsset(context.Background(), "k")
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestHasAssetEndpoint(t *testing.T) {
	s, _ := newFixture(t, "tok")
	assert.True(t, s.HasAssetEndpoint())

	plain, err := New("https://example.com/o/")
	require.NoError(t, err)
	assert.False(t, plain.HasAssetEndpoint())
}
