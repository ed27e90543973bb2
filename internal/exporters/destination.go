package exporters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/deepr/internal/utils"
)

const (
	fileScheme   = "file:"
	remoteScheme = "remote:"
)

var (
	ErrRemoteDestination     = errors.New("remote destination is not available")
	ErrDestinationNotAllowed = errors.New("destination is outside the configured export location")
)

// Uploader stores a named file with the remote sync provider.
type Uploader interface {
	UploadFile(ctx context.Context, name string, content io.Reader) error
}

// Destination receives one encoded export. name is the file name the export
// would have in a directory; single-file targets ignore it.
type Destination interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// ResolveDestination maps a logical identifier to a destination:
//
//	/some/dir           directory, one new file per export
//	file:/some/out.csv  single file, truncated and rewritten
//	remote:             remote sync provider
//	remote:weekly       remote sync provider, fixed file name
func ResolveDestination(id string, remote Uploader) (Destination, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return nil, ErrNoDestination
	case strings.HasPrefix(id, remoteScheme):
		if remote == nil {
			return nil, ErrRemoteDestination
		}
		dest := RemoteDestination{uploader: remote}
		if name := strings.TrimSpace(strings.TrimPrefix(id, remoteScheme)); name != "" {
			dest.Name = utils.SanitizeFilename(name)
		}
		return dest, nil
	case strings.HasPrefix(id, fileScheme):
		path := strings.TrimPrefix(id, fileScheme)
		if path == "" {
			return nil, ErrNoDestination
		}
		return FileDestination{Path: path}, nil
	default:
		return DirDestination{Dir: id}, nil
	}
}

// ConfineDestination checks a caller-supplied override against the configured
// destination. Empty and remote overrides are always allowed. Local overrides
// must match the configured destination or, when it is a directory, stay
// inside it.
func ConfineDestination(override, configured string) error {
	override = strings.TrimSpace(override)
	configured = strings.TrimSpace(configured)
	if override == "" || strings.HasPrefix(override, remoteScheme) || override == configured {
		return nil
	}
	if configured == "" || strings.HasPrefix(configured, remoteScheme) || strings.HasPrefix(configured, fileScheme) {
		return ErrDestinationNotAllowed
	}

	root, err := filepath.Abs(configured)
	if err != nil {
		return ErrDestinationNotAllowed
	}
	target, err := filepath.Abs(strings.TrimPrefix(override, fileScheme))
	if err != nil {
		return ErrDestinationNotAllowed
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ErrDestinationNotAllowed
	}
	if strings.HasPrefix(override, fileScheme) && rel == "." {
		return ErrDestinationNotAllowed
	}
	return nil
}

type DirDestination struct {
	Dir string
}

func (d DirDestination) Write(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(d.Dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

type FileDestination struct {
	Path string
}

func (f FileDestination) Write(_ context.Context, _ string, data []byte) (string, error) {
	file, err := os.OpenFile(f.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", f.Path, err)
	}
	return f.Path, nil
}

type RemoteDestination struct {
	uploader Uploader
	// Name replaces the generated file name; the extension is kept.
	Name string
}

func (r RemoteDestination) Write(ctx context.Context, name string, data []byte) (string, error) {
	if r.Name != "" {
		name = utils.WithExtension(r.Name, strings.TrimPrefix(filepath.Ext(name), "."))
	}
	if err := r.uploader.UploadFile(ctx, name, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return remoteScheme + name, nil
}
