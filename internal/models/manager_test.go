package models

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDefaultModel(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())

	name, err := store.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, DefaultModelName, name)

	require.NoError(t, store.SetDefault("vosk-model-en-us-0.22"))
	name, err = store.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "vosk-model-en-us-0.22", name)

	assert.Error(t, store.SetDefault("not-a-model"))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	_, err := store.Resolve("")
	assert.ErrorContains(t, err, "model not found")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, DefaultModelName), 0755))
	path, err := store.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultModelName), path)

	custom := t.TempDir()
	path, err = store.Resolve(custom)
	require.NoError(t, err)
	assert.Equal(t, custom, path)

	models, err := store.Downloaded()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultModelName}, models)
}

func TestDownloadExtractsArchive(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"vosk-model-test/conf/model.conf": "--sample-frequency=16000",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	store := NewStore(t.TempDir(), zerolog.Nop())
	store.Catalog = []Model{{Name: "vosk-model-test", URL: srv.URL + "/model.zip"}}

	var last int64
	err := store.Download(context.Background(), "vosk-model-test", func(downloaded, _ int64) {
		last = downloaded
	})
	require.NoError(t, err)
	assert.EqualValues(t, len(archive), last)

	downloaded, err := store.IsDownloaded("vosk-model-test")
	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.NoFileExists(t, filepath.Join(store.Dir, "vosk-model-test.zip"))
}

func TestDownloadReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	store := NewStore(t.TempDir(), zerolog.Nop())
	store.Catalog = []Model{{Name: "vosk-model-test", URL: srv.URL}}

	err := store.Download(context.Background(), "vosk-model-test", nil)
	assert.ErrorContains(t, err, "404")
	assert.Error(t, store.Download(context.Background(), "missing", nil))
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	require.NoError(t, os.WriteFile(zipPath, zipArchive(t, map[string]string{"../escape.txt": "x"}), 0644))

	err := extractZip(zipPath, filepath.Join(dir, "out"))
	assert.ErrorContains(t, err, "illegal file path")
}
