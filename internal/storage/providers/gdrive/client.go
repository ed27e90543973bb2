// Package gdrive stores files in the Google Drive appDataFolder through the
// Drive v3 REST API.
package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/deepr/internal/storage"
)

const (
	driveAPIURL    = "https://www.googleapis.com/drive/v3"
	driveUploadURL = "https://www.googleapis.com/upload/drive/v3"

	appDataFolder = "appDataFolder"
	fileFields    = "id,name,modifiedTime,size,md5Checksum"
)

// Scope grants access to the application-private Drive folder only.
const Scope = "https://www.googleapis.com/auth/drive.appdata"

type Client struct {
	httpClient *http.Client
	apiURL     string
	uploadURL  string
}

// NewClient creates a Drive client. httpClient must attach the OAuth token.
func NewClient(httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		apiURL:     driveAPIURL,
		uploadURL:  driveUploadURL,
	}
}

type driveFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ModifiedTime time.Time `json:"modifiedTime"`
	Size         string    `json:"size"`
	MD5Checksum  string    `json:"md5Checksum"`
}

func (f driveFile) fileInfo() storage.FileInfo {
	size, _ := strconv.ParseInt(f.Size, 10, 64)
	return storage.FileInfo{
		Name:        f.Name,
		Path:        f.Name,
		Size:        size,
		ModifiedAt:  f.ModifiedTime,
		ID:          f.ID,
		ContentHash: f.MD5Checksum,
	}
}

type fileList struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken"`
}

func (c *Client) List(ctx context.Context, name string) ([]storage.FileInfo, error) {
	query := url.Values{}
	query.Set("spaces", appDataFolder)
	query.Set("q", fmt.Sprintf("name = '%s' and trashed = false", strings.ReplaceAll(name, "'", `\'`)))
	query.Set("fields", "nextPageToken,files("+fileFields+")")
	query.Set("pageSize", "100")

	var files []storage.FileInfo
	for {
		var page fileList
		if err := c.do(ctx, http.MethodGet, c.apiURL+"/files?"+query.Encode(), nil, "", &page); err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			files = append(files, f.fileInfo())
		}
		if page.NextPageToken == "" {
			return files, nil
		}
		query.Set("pageToken", page.NextPageToken)
	}
}

func (c *Client) Download(ctx context.Context, file storage.FileInfo) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/files/"+url.PathEscape(file.ID)+"?alt=media", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
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

// Create uploads metadata and content in one multipart request.
func (c *Client) Create(ctx context.Context, name string, content io.Reader) (*storage.FileInfo, error) {
	meta, err := json.Marshal(map[string]any{
		"name":    name,
		"parents": []string{appDataFolder},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, err
	}
	if _, err := metaPart.Write(meta); err != nil {
		return nil, err
	}

	mediaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/octet-stream"}})
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(mediaPart, content); err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	endpoint := c.uploadURL + "/files?uploadType=multipart&fields=" + url.QueryEscape(fileFields)
	var created driveFile
	if err := c.do(ctx, http.MethodPost, endpoint, &body, "multipart/related; boundary="+mw.Boundary(), &created); err != nil {
		return nil, err
	}
	info := created.fileInfo()
	return &info, nil
}

// Update replaces the file media, keeping its ID.
func (c *Client) Update(ctx context.Context, file storage.FileInfo, content io.Reader) (*storage.FileInfo, error) {
	endpoint := c.uploadURL + "/files/" + url.PathEscape(file.ID) + "?uploadType=media&fields=" + url.QueryEscape(fileFields)
	var updated driveFile
	if err := c.do(ctx, http.MethodPatch, endpoint, content, "application/octet-stream", &updated); err != nil {
		return nil, err
	}
	info := updated.fileInfo()
	return &info, nil
}

func (c *Client) Delete(ctx context.Context, file storage.FileInfo) error {
	return c.do(ctx, http.MethodDelete, c.apiURL+"/files/"+url.PathEscape(file.ID), nil, "", nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("drive request failed: %w", err)
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

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, string(body))
	}
	return fmt.Errorf("drive API error (status %d): %s", resp.StatusCode, string(body))
}

var _ storage.Client = (*Client)(nil)
