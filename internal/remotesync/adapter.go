// Package remotesync is the boundary between the backup pipeline and a
// remote object store the user signs in to.
package remotesync

import (
	"context"
	"errors"
	"io"
	"time"
)

// BackupFileName is the single canonical remote backup object.
const BackupFileName = "deepr_backup.json"

var (
	ErrUnavailable      = errors.New("remote sync is not available")
	ErrNotAuthenticated = errors.New("remote sync is not authenticated")
	ErrUnknownState     = errors.New("unknown or expired authorization state")
)

type BackupStatus struct {
	HasBackup    bool       `json:"has_backup"`
	LastBackupAt *time.Time `json:"last_backup_at,omitempty"`
}

// Adapter is implemented by every remote sync provider.
type Adapter interface {
	// Provider names the backing service, "" when none.
	Provider() string
	IsAvailable() bool
	IsAuthenticated(ctx context.Context) bool

	// AuthURL returns the page the user visits to grant access. state is
	// echoed back to the redirect and must be passed to HandleAuthResult.
	AuthURL(state string) (string, error)
	HandleAuthResult(ctx context.Context, state, code string) error
	SignOut(ctx context.Context) error

	// UploadBackup replaces the remote backup. The bool reports whether
	// anything was uploaded.
	UploadBackup(ctx context.Context, content io.Reader) (bool, error)
	UploadFile(ctx context.Context, name string, content io.Reader) error
	// DownloadBackup returns the latest backup; false when none exists.
	DownloadBackup(ctx context.Context) (io.ReadCloser, bool, error)
	BackupStatus(ctx context.Context) (BackupStatus, error)
}

// Noop is the adapter used when no provider is configured.
type Noop struct{}

func (Noop) Provider() string                                       { return "" }
func (Noop) IsAvailable() bool                                      { return false }
func (Noop) IsAuthenticated(context.Context) bool                   { return false }
func (Noop) AuthURL(string) (string, error)                         { return "", nil }
func (Noop) HandleAuthResult(context.Context, string, string) error { return nil }
func (Noop) SignOut(context.Context) error                          { return nil }

func (Noop) UploadBackup(context.Context, io.Reader) (bool, error) { return false, nil }

func (Noop) UploadFile(context.Context, string, io.Reader) error { return ErrUnavailable }

func (Noop) DownloadBackup(context.Context) (io.ReadCloser, bool, error) { return nil, false, nil }

func (Noop) BackupStatus(context.Context) (BackupStatus, error) { return BackupStatus{}, nil }

var _ Adapter = Noop{}
