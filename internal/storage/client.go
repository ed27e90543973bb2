// Package storage defines the remote object store used for backups.
//
// Providers keep files in an application-private flat folder (the Drive
// appDataFolder, the Dropbox app folder), so files are addressed by name.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a file does not exist remotely.
var ErrNotFound = errors.New("remote file not found")

// FileInfo contains metadata about a file in cloud storage
type FileInfo struct {
	Name        string
	Path        string
	Size        int64
	ModifiedAt  time.Time
	ID          string // Provider-specific identifier
	ContentHash string // Provider-specific content hash (if available)
}

// Client defines the interface for cloud storage operations
type Client interface {
	// List returns the files called name
	List(ctx context.Context, name string) ([]FileInfo, error)

	// Download retrieves the contents of a file
	Download(ctx context.Context, file FileInfo) (io.ReadCloser, error)

	// Create stores a new file called name
	Create(ctx context.Context, name string, content io.Reader) (*FileInfo, error)

	// Update replaces the contents of an existing file in place
	Update(ctx context.Context, file FileInfo, content io.Reader) (*FileInfo, error)

	Delete(ctx context.Context, file FileInfo) error
}

// FilterFiles filters file list by a predicate function
func FilterFiles(files []FileInfo, predicate func(FileInfo) bool) []FileInfo {
	var filtered []FileInfo
	for _, f := range files {
		if predicate(f) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// FindLatest returns the most recently modified file from a list
func FindLatest(files []FileInfo) *FileInfo {
	if len(files) == 0 {
		return nil
	}

	latest := &files[0]
	for i := 1; i < len(files); i++ {
		if files[i].ModifiedAt.After(latest.ModifiedAt) {
			latest = &files[i]
		}
	}
	return latest
}

// Upsert updates the most recently modified file called name, or creates it.
func Upsert(ctx context.Context, client Client, name string, content io.Reader) (*FileInfo, error) {
	files, err := client.List(ctx, name)
	if err != nil {
		return nil, err
	}
	if latest := FindLatest(files); latest != nil {
		return client.Update(ctx, *latest, content)
	}
	return client.Create(ctx, name, content)
}

// OpenLatest downloads the most recently modified file called name.
func OpenLatest(ctx context.Context, client Client, name string) (io.ReadCloser, *FileInfo, error) {
	files, err := client.List(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	latest := FindLatest(files)
	if latest == nil {
		return nil, nil, ErrNotFound
	}
	body, err := client.Download(ctx, *latest)
	if err != nil {
		return nil, nil, err
	}
	return body, latest, nil
}
