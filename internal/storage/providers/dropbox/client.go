package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mrlokans/deepr/internal/storage"
)

const (
	dropboxAPIURL     = "https://api.dropboxapi.com/2"
	dropboxContentURL = "https://content.dropboxapi.com/2"
)

// Client implements storage.Client for a Dropbox app folder
type Client struct {
	httpClient *http.Client
	apiURL     string
	contentURL string
}

// NewClient creates a Dropbox client. httpClient must attach the OAuth token.
func NewClient(httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		apiURL:     dropboxAPIURL,
		contentURL: dropboxContentURL,
	}
}

type metadata struct {
	Tag            string    `json:".tag"`
	Name           string    `json:"name"`
	PathDisplay    string    `json:"path_display"`
	ID             string    `json:"id"`
	ServerModified time.Time `json:"server_modified"`
	Size           int64     `json:"size"`
	ContentHash    string    `json:"content_hash"`
}

func (m metadata) fileInfo() storage.FileInfo {
	return storage.FileInfo{
		Name:        m.Name,
		Path:        m.PathDisplay,
		Size:        m.Size,
		ModifiedAt:  m.ServerModified,
		ID:          m.ID,
		ContentHash: m.ContentHash,
	}
}

type listFolderResponse struct {
	Entries []metadata `json:"entries"`
	Cursor  string     `json:"cursor"`
	HasMore bool       `json:"has_more"`
}

// rpc posts a JSON body to an API endpoint and decodes the JSON reply into out.
func (c *Client) rpc(ctx context.Context, endpoint string, body, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dropbox request %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// List scans the app folder root and keeps files called name.
func (c *Client) List(ctx context.Context, name string) ([]storage.FileInfo, error) {
	var listResp listFolderResponse
	err := c.rpc(ctx, "/files/list_folder", map[string]any{
		"path":            "",
		"recursive":       false,
		"include_deleted": false,
	}, &listResp)
	if err != nil {
		return nil, err
	}

	var files []storage.FileInfo
	for {
		for _, e := range listResp.Entries {
			if e.Tag == "file" && e.Name == name {
				files = append(files, e.fileInfo())
			}
		}
		if !listResp.HasMore {
			return files, nil
		}
		cursor := listResp.Cursor
		listResp = listFolderResponse{}
		if err := c.rpc(ctx, "/files/list_folder/continue", map[string]string{"cursor": cursor}, &listResp); err != nil {
			return nil, err
		}
	}
}

func (c *Client) Download(ctx context.Context, file storage.FileInfo) (io.ReadCloser, error) {
	pathArg, err := json.Marshal(map[string]string{"path": c.pathOf(file)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal path arg: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL+"/files/download", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Dropbox-API-Arg", string(pathArg))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) Create(ctx context.Context, name string, content io.Reader) (*storage.FileInfo, error) {
	return c.upload(ctx, "/"+name, content)
}

// Update overwrites the file at its current path.
func (c *Client) Update(ctx context.Context, file storage.FileInfo, content io.Reader) (*storage.FileInfo, error) {
	return c.upload(ctx, c.pathOf(file), content)
}

func (c *Client) upload(ctx context.Context, path string, content io.Reader) (*storage.FileInfo, error) {
	uploadArg, err := json.Marshal(map[string]any{
		"path":       path,
		"mode":       "overwrite",
		"autorename": false,
		"mute":       true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload arg: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL+"/files/upload", content)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Dropbox-API-Arg", string(uploadArg))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var meta metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	info := meta.fileInfo()
	return &info, nil
}

func (c *Client) Delete(ctx context.Context, file storage.FileInfo) error {
	return c.rpc(ctx, "/files/delete_v2", map[string]string{"path": c.pathOf(file)}, nil)
}

func (c *Client) pathOf(file storage.FileInfo) string {
	if file.Path != "" {
		return file.Path
	}
	return "/" + file.Name
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	// Dropbox reports missing paths as 409 path/not_found
	if resp.StatusCode == http.StatusConflict && bytes.Contains(body, []byte("not_found")) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, string(body))
	}
	return fmt.Errorf("dropbox API error (status %d): %s", resp.StatusCode, string(body))
}

var _ storage.Client = (*Client)(nil)
