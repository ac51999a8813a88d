package gem

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const feedBody = `{
	"total_count": 2,
	"services": [
		{"id": "t1", "display_name": "Helpdesk services", "market_url": "https://example.test/t1"},
		{"id": "t2", "display_name": "Catering services", "market_url": "https://example.test/t2"}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(zap.NewNop())
	client.FeedURL = server.URL
	client.HTTPClient = server.Client()

	return client, server
}

func TestFetchTenders(t *testing.T) {
	var gotUA, gotEncoding string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedBody))
	})

	collection, err := client.FetchTenders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, collection.Len())
	assert.Equal(t, "GeM", collection.Source)
	assert.Equal(t, "t1", collection.Services[0].ID)
	assert.Equal(t, userAgent, gotUA)
	// Only encodings the client can decode may be advertised.
	assert.Equal(t, "gzip", gotEncoding)
}

func TestFetchTendersGzip(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(feedBody))
		_ = gz.Close()
	})

	collection, err := client.FetchTenders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, collection.Len())
}

func TestFetchTendersBadStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchTenders(context.Background())
	assert.Error(t, err)
}

func TestFetchTendersInvalidBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	_, err := client.FetchTenders(context.Background())
	assert.Error(t, err)
}

func TestFetchTendersCanceledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchTenders(ctx)
	assert.Error(t, err)
}

func TestFetchTendersDefaultsTotalCount(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"services": [{"id": "t1", "display_name": "X"}]}`))
	})

	collection, err := client.FetchTenders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, collection.TotalCount)
}
