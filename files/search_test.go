package files

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divaparadises/studio/internal/rest"
)

func newStores(t *testing.T, h http.Handler) *SearchStores {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewSearchStores(rest.New(ts.URL, "key", rest.WithHTTPClient(ts.Client())), time.Millisecond)
}

func TestSearchStoresCreateAndList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /fileSearchStores", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "docs", in["displayName"])
		_, _ = w.Write([]byte(`{"name":"fileSearchStores/abc","displayName":"docs"}`))
	})
	mux.HandleFunc("GET /fileSearchStores", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"fileSearchStores":[{"name":"fileSearchStores/a","activeDocumentsCount":"3"}],"nextPageToken":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"fileSearchStores":[{"name":"fileSearchStores/b"}]}`))
	})
	s := newStores(t, mux)
	ctx := context.Background()

	store, err := s.Create(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/abc", store.Name)

	stores, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.EqualValues(t, 3, stores[0].ActiveDocumentsCount)
	assert.Equal(t, "fileSearchStores/b", stores[1].Name)
}

func TestSearchStoresImportFile(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /fileSearchStores/abc:importFile", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "files/123", in["fileName"])
		_, _ = w.Write([]byte(`{"name":"fileSearchStores/abc/operations/op1"}`))
	})
	mux.HandleFunc("GET /fileSearchStores/abc/operations/op1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		_, _ = w.Write([]byte(`{"name":"fileSearchStores/abc/operations/op1","done":true}`))
	})
	s := newStores(t, mux)

	require.NoError(t, s.ImportFile(context.Background(), "fileSearchStores/abc", "files/123"))
	assert.Equal(t, 1, polls)
}

func TestSearchStoresImportFileError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /fileSearchStores/abc:importFile", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"op","done":true,"error":{"code":3,"message":"unsupported file"}}`))
	})
	s := newStores(t, mux)

	err := s.ImportFile(context.Background(), "fileSearchStores/abc", "files/123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file")
}

func TestSearchStoresDeleteAndDocuments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /fileSearchStores/abc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("force"))
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /fileSearchStores/abc/documents", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"documents":[{"name":"fileSearchStores/abc/documents/d1","state":"STATE_ACTIVE","sizeBytes":"2048"}]}`))
	})
	s := newStores(t, mux)
	ctx := context.Background()

	docs, err := s.Documents(ctx, "fileSearchStores/abc")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "STATE_ACTIVE", docs[0].State)
	assert.EqualValues(t, 2048, docs[0].SizeBytes)

	require.NoError(t, s.Delete(ctx, "fileSearchStores/abc", true))
}

func TestTool(t *testing.T) {
	tool := Tool("fileSearchStores/a", "fileSearchStores/b")
	require.NotNil(t, tool.FileSearch)
	assert.Equal(t, []string{"fileSearchStores/a", "fileSearchStores/b"}, tool.FileSearch.FileSearchStoreNames)
}
