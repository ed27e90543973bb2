package http

import (
	"context"
	"encoding/csv"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/exporters"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

type stubMarkdown struct {
	count int
	err   error
}

func (s stubMarkdown) Sync(context.Context) (int, error) { return s.count, s.err }

func exportRouter(db *database.Database, store *settingsstore.SettingsStore, markdown MarkdownSyncer) *gin.Engine {
	controller := NewExportController(db, store, exporters.NewService(db, store, nil, nil), markdown)
	router := gin.New()
	router.POST("/api/export", controller.Export)
	router.GET("/api/export/download", controller.Download)
	router.POST("/api/markdown-sync", controller.SyncMarkdown)
	router.POST("/api/links", NewLinksController(db, nil).CreateLink)
	return router
}

func TestExportController_Export(t *testing.T) {
	t.Run("writes to the requested directory", func(t *testing.T) {
		db := newTestDB(t)
		store := newTestSettings(db)
		root := t.TempDir()
		require.NoError(t, store.SetExportDestination(root))
		router := exportRouter(db, store, nil)
		createLink(t, router, createLinkRequest{Link: "https://go.dev", Tags: []string{"lang"}})
		dir := filepath.Join(root, "manual")

		w := doJSON(t, router, http.MethodPost, "/api/export", exportRequest{Format: "csv", Destination: dir})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, strings.HasPrefix(entries[0].Name(), "deepr_export_"))
		assert.Equal(t, ".csv", filepath.Ext(entries[0].Name()))
	})

	t.Run("override outside the export directory is rejected", func(t *testing.T) {
		db := newTestDB(t)
		store := newTestSettings(db)
		root := t.TempDir()
		require.NoError(t, store.SetExportDestination(root))
		router := exportRouter(db, store, nil)
		createLink(t, router, createLinkRequest{Link: "https://go.dev"})
		outside := filepath.Join(t.TempDir(), "victim.csv")
		require.NoError(t, os.WriteFile(outside, []byte("keep"), 0644))

		for _, dest := range []string{"file:" + outside, filepath.Dir(outside), filepath.Join(root, "..")} {
			w := doJSON(t, router, http.MethodPost, "/api/export", exportRequest{Format: "csv", Destination: dest})
			assert.Equal(t, http.StatusBadRequest, w.Code, dest)
			assert.Contains(t, w.Body.String(), "destination_not_allowed")
		}

		data, err := os.ReadFile(outside)
		require.NoError(t, err)
		assert.Equal(t, "keep", string(data))
		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("override without a configured destination is rejected", func(t *testing.T) {
		db := newTestDB(t)
		router := exportRouter(db, newTestSettings(db), nil)
		createLink(t, router, createLinkRequest{Link: "https://go.dev"})

		w := doJSON(t, router, http.MethodPost, "/api/export", exportRequest{Format: "csv", Destination: t.TempDir()})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "destination_not_allowed")
	})

	t.Run("no destination is a conflict", func(t *testing.T) {
		db := newTestDB(t)
		router := exportRouter(db, newTestSettings(db), nil)
		createLink(t, router, createLinkRequest{Link: "https://go.dev"})

		w := doJSON(t, router, http.MethodPost, "/api/export", exportRequest{Format: "csv"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "no_destination")
	})

	t.Run("empty store writes nothing", func(t *testing.T) {
		db := newTestDB(t)
		store := newTestSettings(db)
		dir := t.TempDir()
		require.NoError(t, store.SetExportDestination(dir))
		router := exportRouter(db, store, nil)

		w := doJSON(t, router, http.MethodPost, "/api/export", exportRequest{Format: "csv"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "no_data")
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("disabled export is a conflict", func(t *testing.T) {
		db := newTestDB(t)
		store := newTestSettings(db)
		require.NoError(t, store.SetExportEnabled(false))
		require.NoError(t, store.SetExportDestination(t.TempDir()))
		router := exportRouter(db, store, nil)

		w := doJSON(t, router, http.MethodPost, "/api/export", exportRequest{Format: "csv"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "export_disabled")
	})

	t.Run("decode-only format cannot be exported", func(t *testing.T) {
		db := newTestDB(t)
		store := newTestSettings(db)
		require.NoError(t, store.SetExportDestination(t.TempDir()))
		router := exportRouter(db, store, nil)

		w := doJSON(t, router, http.MethodPost, "/api/export", exportRequest{Format: "text"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExportController_Download(t *testing.T) {
	db := newTestDB(t)
	router := exportRouter(db, newTestSettings(db), nil)

	w := doJSON(t, router, http.MethodGet, "/api/export/download?format=csv", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "nothing to download yet")

	createLink(t, router, createLinkRequest{Link: "https://go.dev", Name: "Go"})

	w = doJSON(t, router, http.MethodGet, "/api/export/download?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "link", rows[0][0])
	assert.Equal(t, "https://go.dev", rows[1][0])
}

func TestExportController_SyncMarkdown(t *testing.T) {
	db := newTestDB(t)

	w := doJSON(t, exportRouter(db, newTestSettings(db), nil), http.MethodPost, "/api/markdown-sync", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, exportRouter(db, newTestSettings(db), stubMarkdown{err: exporters.ErrMarkdownTarget}), http.MethodPost, "/api/markdown-sync", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "markdown_target_invalid")

	w = doJSON(t, exportRouter(db, newTestSettings(db), stubMarkdown{count: 4}), http.MethodPost, "/api/markdown-sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Synced 4 links")
}
