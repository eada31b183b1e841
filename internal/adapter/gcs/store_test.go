package gcs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/option"

	"securerag/backend/internal/adapter/gcs"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) (*gcs.Store, *httptest.Server) {
	ts := httptest.NewServer(handler)
	store, err := gcs.NewStore(context.Background(), "test-bucket",
		option.WithEndpoint(ts.URL),
		option.WithoutAuthentication(),
	)
	assert.NoError(t, err)
	return store, ts
}

func TestStore_Fetch(t *testing.T) {
	store, ts := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/b/test-bucket/o/report.pdf")
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		w.Write([]byte("pdf bytes"))
	})
	defer ts.Close()

	data, err := store.Fetch(context.Background(), "gs://test-bucket/report.pdf")
	assert.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)
}

func TestStore_Fetch_NotFound(t *testing.T) {
	store, ts := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
	})
	defer ts.Close()

	_, err := store.Fetch(context.Background(), "gs://test-bucket/missing.pdf")
	assert.ErrorIs(t, err, gcs.ErrNotFound)
}

func TestStore_Fetch_BadLocator(t *testing.T) {
	store, ts := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an unparseable locator")
	})
	defer ts.Close()

	_, err := store.Fetch(context.Background(), "http://not-gcs/x")
	assert.Error(t, err)

	_, err = store.Fetch(context.Background(), "gs://bucket-only")
	assert.Error(t, err)
}

func TestStore_Store(t *testing.T) {
	store, ts := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Contains(t, r.URL.Path, "/b/test-bucket/o")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"abc.pdf","bucket":"test-bucket"}`))
	})
	defer ts.Close()

	locator, err := store.Store(context.Background(), "abc.pdf", "application/pdf", []byte("%PDF-1.4"))
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "gs://test-bucket/"))
	assert.Equal(t, "gs://test-bucket/abc.pdf", locator)
}
