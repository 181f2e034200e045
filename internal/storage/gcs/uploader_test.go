package gcs_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/markercheck/internal/storage/gcs"
)

func newTestClient(t *testing.T, handler http.Handler) *storage.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew_Validation(t *testing.T) {
	_, err := gcs.New(nil, gcs.Config{Bucket: "b"})
	require.Error(t, err)

	client := newTestClient(t, http.NotFoundHandler())
	_, err = gcs.New(client, gcs.Config{})
	require.Error(t, err)
}

func TestUploader_ObjectName(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())

	u, err := gcs.New(client, gcs.Config{Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "resultados.csv", u.ObjectName("/tmp/run/resultados.csv"))

	u, err = gcs.New(client, gcs.Config{Bucket: "b", Object: "runs/today.csv"})
	require.NoError(t, err)
	assert.Equal(t, "runs/today.csv", u.ObjectName("/tmp/run/resultados.csv"))
}

func TestUploader_UploadFile(t *testing.T) {
	const bucket = "test-bucket"
	content := "id,url,status,timeMs,found,h3_content\n\"1\",\"u\",200,5,\"SI\",\"x\"\n"

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, fmt.Sprintf("/upload/storage/v1/b/%s/o", bucket))
		assert.Equal(t, "out.csv", r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), content)
		assert.Contains(t, string(body), "text/csv")
		assert.Contains(t, string(body), `"sha256"`)

		fmt.Fprintln(w, `{ "name": "out.csv", "bucket": "`+bucket+`" }`)
	})

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	u, err := gcs.New(newTestClient(t, handler), gcs.Config{Bucket: bucket})
	require.NoError(t, err)

	uri, err := u.UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "gs://test-bucket/out.csv", uri)
}

func TestUploader_UploadFile_Errors(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	u, err := gcs.New(newTestClient(t, handler), gcs.Config{Bucket: "b"})
	require.NoError(t, err)

	_, err = u.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	_, err = u.UploadFile(context.Background(), path)
	require.Error(t, err)
}

func TestUploader_Put_ReadErrorDoesNotCommit(t *testing.T) {
	var committed atomic.Bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		committed.Store(true)
		fmt.Fprintln(w, `{ "name": "out.csv", "bucket": "b" }`)
	})
	u, err := gcs.New(newTestClient(t, handler), gcs.Config{Bucket: "b"})
	require.NoError(t, err)

	readErr := errors.New("disk read failed")
	r := io.MultiReader(strings.NewReader("id,url\n\"1\""), &failingReader{err: readErr})

	_, err = u.Put(context.Background(), "out.csv", "text/csv", nil, r)
	require.ErrorIs(t, err, readErr)
	assert.False(t, committed.Load(), "a failed copy must not leave a partial object")
}

type failingReader struct {
	err error
}

func (f *failingReader) Read([]byte) (int, error) {
	return 0, f.err
}
