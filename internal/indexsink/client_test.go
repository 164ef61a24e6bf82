package indexsink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/hierchunk/internal/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	mu    sync.Mutex
	nodes map[string]NodeRequest
	links []LinkRequest
	auth  []string
	fail  int // status to return, 0 for success
}

func (f *fakeIndex) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	if f.fail != 0 {
		http.Error(w, "boom", f.fail)
		return
	}
	switch {
	case r.Method == http.MethodPut && r.URL.Path == "/links":
		var req LinkRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.links = append(f.links, req)
	case r.Method == http.MethodPut:
		var req NodeRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.nodes[r.URL.Path[len("/kv/"):]] = req
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeIndex) setFail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = status
}

func newFake(t *testing.T) (*fakeIndex, *Client) {
	t.Helper()
	f := &fakeIndex{nodes: make(map[string]NodeRequest)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", "secret")
	t.Cleanup(c.Close)
	return f, c
}

func TestClient_PutNodeAndLink(t *testing.T) {
	f, c := newFake(t)
	ctx := context.Background()

	require.NoError(t, c.PutNode(ctx, "docs/a", NodeRequest{Value: map[string]any{"x": 1}, Source: "test"}))
	require.NoError(t, c.PutLink(ctx, LinkRequest{From: "docs/a", To: "docs/b", Weight: 1}))
	require.NoError(t, c.DeleteNode(ctx, "docs/a", true))

	assert.Contains(t, f.nodes, "docs/a")
	assert.Equal(t, "test", f.nodes["docs/a"].Source)
	require.Len(t, f.links, 1)
	assert.Equal(t, "docs/b", f.links[0].To)
	for _, a := range f.auth {
		assert.Equal(t, "Bearer secret", a)
	}
}

func TestClient_RetryableStatuses(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		f, c := newFake(t)
		f.setFail(tt.status)
		err := c.PutNode(context.Background(), "k", NodeRequest{Value: 1})
		require.Error(t, err)

		var re *RetryableError
		assert.Equal(t, tt.retryable, errors.As(err, &re), "status %d", tt.status)
		if tt.retryable {
			assert.Equal(t, tt.status, re.StatusCode)
		}
	}
}

func TestClient_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, "")
	err := c.PutLink(context.Background(), LinkRequest{From: "a", To: "b"})
	var re *RetryableError
	assert.ErrorAs(t, err, &re)
}

func TestIndexResult(t *testing.T) {
	f, c := newFake(t)
	b, err := hierarchy.NewBuilder(hierarchy.DefaultConfig(),
		hierarchy.WithClock(func() time.Time { return time.Unix(0, 0) }))
	require.NoError(t, err)
	r := b.BuildText("# One\n\nThe first section has enough words to stand alone.\n\n# Two\n\nThe second section also has enough words in it.\n")
	require.NotEmpty(t, r.Children)

	var calls, lastTotal int
	keys := Keys{Prefix: "documents/doc-1"}
	err = IndexResult(context.Background(), c, keys, "hierchunk:doc-1", r, func(done, total int) {
		calls++
		lastTotal = total
		assert.LessOrEqual(t, done, total)
	})
	require.NoError(t, err)

	assert.Equal(t, lastTotal, calls)
	assert.Len(t, f.nodes, len(r.Parents)+len(r.Children)+1)
	assert.Len(t, f.links, len(r.Children))
	for _, p := range r.Parents {
		assert.Contains(t, f.nodes, keys.Parent(p.ID))
	}
	for _, l := range f.links {
		assert.Equal(t, "child_of", l.Summary)
		assert.Contains(t, f.nodes, l.To)
	}
	assert.Contains(t, f.nodes, "documents/doc-1/meta")
}

func TestIndexResult_StopsOnError(t *testing.T) {
	f, c := newFake(t)
	f.setFail(http.StatusServiceUnavailable)
	b, err := hierarchy.NewBuilder(hierarchy.DefaultConfig())
	require.NoError(t, err)
	r := b.BuildText("# One\n\nSome content long enough to survive.\n")

	err = IndexResult(context.Background(), c, Keys{Prefix: "d"}, "s", r, nil)
	var re *RetryableError
	require.ErrorAs(t, err, &re)
	assert.Len(t, f.auth, 1)
}
