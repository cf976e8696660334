package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-match-backend/internal/config"
)

// fakeS3 answers path-style HEAD/DELETE requests for a single bucket.
func fakeS3(t *testing.T, existing map[string]bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/photos/")
		switch r.Method {
		case http.MethodHead:
			if existing[key] {
				w.Header().Set("Content-Length", "3")
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case http.MethodDelete:
			delete(existing, key)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newStore(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	s, err := NewS3Store(config.S3Config{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "photos",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		PublicBaseURL:   "https://cdn.example/",
		PresignTTL:      5 * time.Minute,
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return s
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(config.S3Config{})
	assert.Error(t, err)
}

func TestPresignPut_SignsURL(t *testing.T) {
	s := newStore(t, "http://127.0.0.1:9000")
	url, exp, err := s.PresignPut(context.Background(), "u1/123.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Contains(t, url, "/photos/u1/123.jpg")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=300")
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)
}

func TestExistsAndDelete(t *testing.T) {
	objects := map[string]bool{"u1/1.jpg": true}
	srv := fakeS3(t, objects)
	s := newStore(t, srv.URL)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "u1/1.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "u1/missing.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, "u1/1.jpg"))
	ok, err = s.Exists(ctx, "u1/1.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPublicURLAndKeyFromURL(t *testing.T) {
	s := newStore(t, "")
	u := s.PublicURL("u1/1.jpg")
	assert.Equal(t, "https://cdn.example/u1/1.jpg", u)

	key, ok := s.KeyFromURL(u)
	assert.True(t, ok)
	assert.Equal(t, "u1/1.jpg", key)

	_, ok = s.KeyFromURL("https://elsewhere/u1/1.jpg")
	assert.False(t, ok)
	_, ok = s.KeyFromURL("https://cdn.example/")
	assert.False(t, ok)
}
