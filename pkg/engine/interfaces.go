package engine

import (
	"context"
	"io/fs"
	"time"
)

// Filesystem manages the site document root and files inside it.
type Filesystem interface {
	CreateDir(ctx context.Context, path string, mode fs.FileMode) error
	DeleteDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, path string, content []byte, mode fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	Exists(path string) (bool, error)
	DirEmpty(path string) (bool, error)
	ListDirs(path string) ([]string, error)
	// SetOwnerAndMode applies owner and permissions recursively, with
	// separate modes for directories and files. An empty owner skips the
	// ownership change.
	SetOwnerAndMode(ctx context.Context, path, owner string, dirMode, fileMode fs.FileMode) error
}

// WebServer manages per-site virtual host configuration, the server process,
// and the local hosts file.
type WebServer interface {
	WriteVhostConfig(ctx context.Context, siteID, docRoot string) error
	RemoveVhostConfig(ctx context.Context, siteID string) error
	VhostConfigExists(siteID string) (bool, error)
	ListVhosts() ([]string, error)
	ValidateConfig(ctx context.Context) error
	Enable(ctx context.Context, siteID string) error
	Disable(ctx context.Context, siteID string) error
	IsEnabled(siteID string) (bool, error)
	Reload(ctx context.Context) error
	IsRunning(ctx context.Context) (bool, error)

	AddHostsEntry(ctx context.Context, siteID string) error
	RemoveHostsEntry(ctx context.Context, siteID string) error
	HostsEntryExists(siteID string) (bool, error)
}

// Database manages databases, users, and grants on the local engine.
type Database interface {
	TestConnection(ctx context.Context) error
	DatabaseExists(ctx context.Context, name string) (bool, error)
	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
	UserExists(ctx context.Context, name string) (bool, error)
	CreateUser(ctx context.Context, name, password string) error
	DropUser(ctx context.Context, name string) error
	GrantAll(ctx context.Context, user, database string) error
	TableCount(ctx context.Context, database string) (int, error)
}

// CMS drives the WordPress installer.
type CMS interface {
	IsCallable(ctx context.Context) error
	Download(ctx context.Context, path string) error
	WriteConfig(ctx context.Context, path, dbName, dbUser, dbPassword string) error
	Install(ctx context.Context, path, url, title, adminUser, adminPassword, adminEmail string) error
	SetOption(ctx context.Context, path, key, value string) error
}

// StepAction describes what the engine was doing when a step event fired.
type StepAction string

const (
	ActionApply      StepAction = "apply"
	ActionCompensate StepAction = "compensate"
	ActionRemove     StepAction = "remove"
)

// Recorder receives run and step events for audit purposes. Recording is
// best-effort: the engine never fails an operation because recording failed.
type Recorder interface {
	RunStarted(ctx context.Context, runID, operation, siteID string, at time.Time)
	StepObserved(ctx context.Context, runID, step string, action StepAction, outcome string, detail string)
	RunFinished(ctx context.Context, runID, status string, errMsg string, at time.Time)
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) RunStarted(context.Context, string, string, string, time.Time) {}
func (NopRecorder) StepObserved(context.Context, string, string, StepAction, string, string) {}
func (NopRecorder) RunFinished(context.Context, string, string, string, time.Time) {}
