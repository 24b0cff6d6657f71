package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Checker verifies, before any mutation, that the target site does not
// already exist on any resource and that every backing service is reachable.
type Checker struct {
	fs      Filesystem
	web     WebServer
	db      Database
	cms     CMS
	webRoot string
}

// NewChecker constructs a precondition checker over the given adapters.
func NewChecker(filesystem Filesystem, web WebServer, db Database, cms CMS, webRoot string) *Checker {
	return &Checker{fs: filesystem, web: web, db: db, cms: cms, webRoot: webRoot}
}

// CheckAvailable returns a conflict error naming the first resource already
// occupied by the candidate site id. A directory that exists but is empty is
// not a conflict.
func (c *Checker) CheckAvailable(ctx context.Context, siteID string) error {
	docRoot := filepath.Join(c.webRoot, siteID)

	exists, err := c.fs.Exists(docRoot)
	if err != nil {
		return NewAdapterError("failed to inspect document root", err).WithResource(ResourceDirectory)
	}
	if exists {
		empty, err := c.fs.DirEmpty(docRoot)
		if err != nil {
			return NewAdapterError("failed to inspect document root", err).WithResource(ResourceDirectory)
		}
		if !empty {
			return NewConflictError(
				fmt.Sprintf("directory %s already exists and is not empty", docRoot), nil,
			).WithResource(ResourceDirectory)
		}
	}

	vhostExists, err := c.web.VhostConfigExists(siteID)
	if err != nil {
		return NewAdapterError("failed to inspect vhost configuration", err).WithResource(ResourceVhost)
	}
	if vhostExists {
		return NewConflictError(
			fmt.Sprintf("vhost configuration for %s already exists", siteID), nil,
		).WithResource(ResourceVhost)
	}

	hostsExists, err := c.web.HostsEntryExists(siteID)
	if err != nil {
		return NewAdapterError("failed to inspect hosts file", err).WithResource(ResourceHosts)
	}
	if hostsExists {
		return NewConflictError(
			fmt.Sprintf("hosts entry for %s.localhost already exists", siteID), nil,
		).WithResource(ResourceHosts)
	}

	return nil
}

// CheckDependencies verifies the web server, database engine, and CMS tool
// are all usable. Unlike the conflict scan it reports every missing
// dependency at once, since an operator typically fixes them as a batch.
func (c *Checker) CheckDependencies(ctx context.Context) error {
	var missing []string

	running, err := c.web.IsRunning(ctx)
	if err != nil {
		missing = append(missing, fmt.Sprintf("web server: %v", err))
	} else if !running {
		missing = append(missing, "web server: service is not active")
	}

	if err := c.db.TestConnection(ctx); err != nil {
		missing = append(missing, fmt.Sprintf("database: %v", err))
	}

	if err := c.cms.IsCallable(ctx); err != nil {
		missing = append(missing, fmt.Sprintf("cms installer: %v", err))
	}

	if len(missing) > 0 {
		return NewUnavailableError(
			"missing dependencies: "+strings.Join(missing, "; "), nil,
		).WithDetail("missing", missing)
	}
	return nil
}
