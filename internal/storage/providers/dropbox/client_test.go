package dropbox

import (
	"context"
	"encoding/json"
	"io"
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
	client.apiURL = server.URL + "/api"
	client.contentURL = server.URL + "/content"
	return client
}

func TestList_FollowsCursorAndFiltersByName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/files/list_folder":
			_, _ = io.WriteString(w, `{"entries":[
				{".tag":"file","name":"deepr_backup.json","path_display":"/deepr_backup.json","id":"id:1","server_modified":"2024-01-01T00:00:00Z"},
				{".tag":"file","name":"other.txt","path_display":"/other.txt","id":"id:2","server_modified":"2024-01-01T00:00:00Z"}
			],"cursor":"c1","has_more":true}`)
		case "/api/files/list_folder/continue":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "c1", body["cursor"])
			_, _ = io.WriteString(w, `{"entries":[
				{".tag":"folder","name":"deepr_backup.json","path_display":"/deepr_backup.json"}
			],"cursor":"c2","has_more":false}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	files, err := client.List(context.Background(), "deepr_backup.json")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "id:1", files[0].ID)
	assert.Equal(t, "/deepr_backup.json", files[0].Path)
	assert.Equal(t, 2024, files[0].ModifiedAt.Year())
}

func TestUpload_Overwrites(t *testing.T) {
	var gotArg map[string]any
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/files/upload", r.URL.Path)
		require.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &gotArg))
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = io.WriteString(w, `{"name":"deepr_backup.json","path_display":"/deepr_backup.json","id":"id:9","size":4}`)
	})

	info, err := client.Create(context.Background(), "deepr_backup.json", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "id:9", info.ID)
	assert.Equal(t, "/deepr_backup.json", gotArg["path"])
	assert.Equal(t, "overwrite", gotArg["mode"])
	assert.Equal(t, "data", gotBody)

	_, err = client.Update(context.Background(), storage.FileInfo{Path: "/Renamed.json"}, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/Renamed.json", gotArg["path"])
}

func TestDownload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/files/download", r.URL.Path)
		assert.Contains(t, r.Header.Get("Dropbox-API-Arg"), "/deepr_backup.json")
		_, _ = io.WriteString(w, "payload")
	})

	body, err := client.Download(context.Background(), storage.FileInfo{Name: "deepr_backup.json"})
	require.NoError(t, err)
	defer body.Close()
	data, _ := io.ReadAll(body)
	assert.Equal(t, "payload", string(data))
}

func TestErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/content/files/download" {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"error_summary":"path/not_found/"}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error_summary":"expired_access_token"}`)
	})

	_, err := client.Download(context.Background(), storage.FileInfo{Name: "missing.json"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = client.Delete(context.Background(), storage.FileInfo{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
