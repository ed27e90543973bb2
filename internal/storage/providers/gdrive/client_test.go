package gdrive

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/deepr/internal/storage"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.Client())
	client.apiURL = server.URL + "/drive/v3"
	client.uploadURL = server.URL + "/upload/drive/v3"
	return client
}

func TestList_QueriesAppDataAndPages(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/drive/v3/files", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "appDataFolder", q.Get("spaces"))
		assert.Equal(t, "name = 'deepr_backup.json' and trashed = false", q.Get("q"))

		if q.Get("pageToken") == "" {
			_, _ = io.WriteString(w, `{"nextPageToken":"p2","files":[{"id":"a","name":"deepr_backup.json","modifiedTime":"2024-02-01T10:00:00Z","size":"12"}]}`)
			return
		}
		assert.Equal(t, "p2", q.Get("pageToken"))
		_, _ = io.WriteString(w, `{"files":[{"id":"b","name":"deepr_backup.json","modifiedTime":"2024-03-01T10:00:00Z"}]}`)
	})

	files, err := client.List(context.Background(), "deepr_backup.json")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(12), files[0].Size)
	assert.Equal(t, "b", storage.FindLatest(files).ID)
}

func TestCreate_SendsMultipartWithAppDataParent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload/drive/v3/files", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		meta, err := mr.NextPart()
		require.NoError(t, err)
		metaBody, _ := io.ReadAll(meta)
		assert.Contains(t, string(metaBody), `"parents":["appDataFolder"]`)
		assert.Contains(t, string(metaBody), `"name":"deepr_backup.json"`)

		media, err := mr.NextPart()
		require.NoError(t, err)
		mediaBody, _ := io.ReadAll(media)
		assert.Equal(t, `{"version":1}`, string(mediaBody))

		_, _ = io.WriteString(w, `{"id":"new-id","name":"deepr_backup.json","modifiedTime":"2024-03-01T10:00:00Z"}`)
	})

	info, err := client.Create(context.Background(), "deepr_backup.json", strings.NewReader(`{"version":1}`))
	require.NoError(t, err)
	assert.Equal(t, "new-id", info.ID)
}

func TestUpdate_PatchesMedia(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/upload/drive/v3/files/abc", r.URL.Path)
		assert.Equal(t, "media", r.URL.Query().Get("uploadType"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "v2", string(body))
		_, _ = io.WriteString(w, `{"id":"abc","name":"deepr_backup.json"}`)
	})

	info, err := client.Update(context.Background(), storage.FileInfo{ID: "abc"}, strings.NewReader("v2"))
	require.NoError(t, err)
	assert.Equal(t, "abc", info.ID)
}

func TestDownloadAndDelete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/drive/v3/files/abc":
			assert.Equal(t, "media", r.URL.Query().Get("alt"))
			_, _ = io.WriteString(w, "payload")
		case r.Method == http.MethodDelete && r.URL.Path == "/drive/v3/files/abc":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	body, err := client.Download(context.Background(), storage.FileInfo{ID: "abc"})
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "payload", string(data))

	require.NoError(t, client.Delete(context.Background(), storage.FileInfo{ID: "abc"}))

	_, err = client.Download(context.Background(), storage.FileInfo{ID: "gone"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
