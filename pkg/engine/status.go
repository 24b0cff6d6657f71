package engine

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
)

// SiteStatus is the reconstructed state of one site across all resources.
// It is never persisted; every facet is read back from the live resource.
type SiteStatus struct {
	SiteID          string `json:"site_id"`
	DocumentRoot    string `json:"document_root"`
	DirectoryExists bool   `json:"directory_exists"`
	VhostPresent    bool   `json:"vhost_present"`
	Enabled         bool   `json:"enabled"`
	HostsEntry      bool   `json:"hosts_entry"`
	DBName          string `json:"db_name,omitempty"`
	DBUser          string `json:"db_user,omitempty"`
	DatabaseExists  bool   `json:"database_exists"`
	DBUserExists    bool   `json:"db_user_exists"`
	TableCount      int    `json:"table_count"`
}

// Provisioned reports whether all facets of the site are present.
func (s *SiteStatus) Provisioned() bool {
	return s.DirectoryExists && s.VhostPresent && s.Enabled && s.HostsEntry &&
		s.DatabaseExists && s.DBUserExists
}

// DependencyStatus reports the health of one backing service.
type DependencyStatus struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// wp-config.php define() extractors for the database facets.
var (
	wpConfigDBName = regexp.MustCompile(`define\(\s*['"]DB_NAME['"]\s*,\s*['"]([^'"]+)['"]\s*\)`)
	wpConfigDBUser = regexp.MustCompile(`define\(\s*['"]DB_USER['"]\s*,\s*['"]([^'"]+)['"]\s*\)`)
)

// Inspector aggregates read-only status across adapters.
type Inspector struct {
	webRoot string
	fs      Filesystem
	web     WebServer
	db      Database
	cms     CMS
}

// NewInspector constructs an inspector over the given adapters.
func NewInspector(webRoot string, filesystem Filesystem, web WebServer, db Database, cms CMS) *Inspector {
	return &Inspector{webRoot: webRoot, fs: filesystem, web: web, db: db, cms: cms}
}

// Inspect reconstructs the status of one site by querying each resource.
// The database facets are resolved through the DB_NAME and DB_USER constants
// in the site's wp-config.php; without a readable config they report absent.
func (i *Inspector) Inspect(ctx context.Context, siteID string) (*SiteStatus, error) {
	if !siteIDPattern.MatchString(siteID) {
		return nil, NewValidationError("invalid site id", nil)
	}

	docRoot := filepath.Join(i.webRoot, siteID)
	status := &SiteStatus{SiteID: siteID, DocumentRoot: docRoot}

	var err error
	if status.DirectoryExists, err = i.fs.Exists(docRoot); err != nil {
		return nil, NewAdapterError("failed to inspect document root", err).WithResource(ResourceDirectory)
	}
	if status.VhostPresent, err = i.web.VhostConfigExists(siteID); err != nil {
		return nil, NewAdapterError("failed to inspect vhost", err).WithResource(ResourceVhost)
	}
	if status.Enabled, err = i.web.IsEnabled(siteID); err != nil {
		return nil, NewAdapterError("failed to inspect enabled state", err).WithResource(ResourceWebServer)
	}
	if status.HostsEntry, err = i.web.HostsEntryExists(siteID); err != nil {
		return nil, NewAdapterError("failed to inspect hosts file", err).WithResource(ResourceHosts)
	}

	if status.DirectoryExists {
		if content, err := i.fs.ReadFile(filepath.Join(docRoot, "wp-config.php")); err == nil {
			if m := wpConfigDBName.FindSubmatch(content); m != nil {
				status.DBName = string(m[1])
			}
			if m := wpConfigDBUser.FindSubmatch(content); m != nil {
				status.DBUser = string(m[1])
			}
		}
	}
	if status.DBName != "" {
		if status.DatabaseExists, err = i.db.DatabaseExists(ctx, status.DBName); err != nil {
			return nil, NewAdapterError("failed to inspect database", err).WithResource(ResourceDatabase)
		}
		if status.DatabaseExists {
			if status.TableCount, err = i.db.TableCount(ctx, status.DBName); err != nil {
				return nil, NewAdapterError("failed to count tables", err).WithResource(ResourceDatabase)
			}
		}
	}
	if status.DBUser != "" {
		if status.DBUserExists, err = i.db.UserExists(ctx, status.DBUser); err != nil {
			return nil, NewAdapterError("failed to inspect database user", err).WithResource(ResourceDBUser)
		}
	}

	return status, nil
}

// List enumerates known site ids as the union of web-root directories and
// vhost configuration files, sorted.
func (i *Inspector) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	dirs, err := i.fs.ListDirs(i.webRoot)
	if err != nil {
		return nil, NewAdapterError("failed to list web root", err).WithResource(ResourceDirectory)
	}
	for _, d := range dirs {
		seen[d] = true
	}

	vhosts, err := i.web.ListVhosts()
	if err != nil {
		return nil, NewAdapterError("failed to list vhosts", err).WithResource(ResourceVhost)
	}
	for _, v := range vhosts {
		seen[v] = true
	}

	sites := make([]string, 0, len(seen))
	for s := range seen {
		sites = append(sites, s)
	}
	sort.Strings(sites)
	return sites, nil
}

// Health probes every backing service and reports each one individually.
func (i *Inspector) Health(ctx context.Context) []DependencyStatus {
	statuses := make([]DependencyStatus, 0, 3)

	running, err := i.web.IsRunning(ctx)
	ws := DependencyStatus{Name: "web server", OK: err == nil && running}
	if err != nil {
		ws.Detail = err.Error()
	} else if !running {
		ws.Detail = "service is not active"
	}
	statuses = append(statuses, ws)

	dbStatus := DependencyStatus{Name: "database engine", OK: true}
	if err := i.db.TestConnection(ctx); err != nil {
		dbStatus.OK = false
		dbStatus.Detail = err.Error()
	}
	statuses = append(statuses, dbStatus)

	cmsStatus := DependencyStatus{Name: "cms installer", OK: true}
	if err := i.cms.IsCallable(ctx); err != nil {
		cmsStatus.OK = false
		cmsStatus.Detail = err.Error()
	}
	statuses = append(statuses, cmsStatus)

	return statuses
}
