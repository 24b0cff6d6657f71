package adapters

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/wplocal/wplocal/pkg/runner"
)

const (
	defaultSitesAvailableDir = "/etc/apache2/sites-available"
	defaultSitesEnabledDir   = "/etc/apache2/sites-enabled"
	defaultLogDir            = "/var/log/apache2"
	defaultHostsFile         = "/etc/hosts"
	defaultApacheService     = "apache2"
	defaultApacheCtl         = "apachectl"

	loopbackAddr = "127.0.0.1"
	localSuffix  = ".localhost"
)

// vhostTemplate is the fixed virtual host rendered for every site: the
// server name, the document root with full override allowed, and per-site
// log files.
const vhostTemplate = `<VirtualHost *:80>
    ServerName {{.ServerName}}
    DocumentRoot {{.DocumentRoot}}

    <Directory {{.DocumentRoot}}>
        Options Indexes FollowSymLinks
        AllowOverride All
        Require all granted
    </Directory>

    ErrorLog {{.ErrorLog}}
    CustomLog {{.AccessLog}} combined
</VirtualHost>
`

// ApacheAdapterOptions controls filesystem locations and command names used
// by the adapter.
type ApacheAdapterOptions struct {
	SitesAvailableDir string
	SitesEnabledDir   string
	LogDir            string
	HostsFile         string
	ServiceName       string
	ApacheCtl         string
}

// ApacheAdapter manages per-site Apache vhost files, the apache2 service,
// and the local hosts file.
type ApacheAdapter struct {
	runner            runner.Runner
	sitesAvailableDir string
	sitesEnabledDir   string
	logDir            string
	hostsFile         string
	serviceName       string
	apacheCtl         string
	tmpl              *template.Template
}

// NewApacheAdapter constructs an Apache adapter with sane defaults.
func NewApacheAdapter(run runner.Runner, opts ApacheAdapterOptions) *ApacheAdapter {
	if run == nil {
		run = runner.ExecRunner{}
	}
	if opts.SitesAvailableDir == "" {
		opts.SitesAvailableDir = defaultSitesAvailableDir
	}
	if opts.SitesEnabledDir == "" {
		opts.SitesEnabledDir = defaultSitesEnabledDir
	}
	if opts.LogDir == "" {
		opts.LogDir = defaultLogDir
	}
	if opts.HostsFile == "" {
		opts.HostsFile = defaultHostsFile
	}
	if opts.ServiceName == "" {
		opts.ServiceName = defaultApacheService
	}
	if opts.ApacheCtl == "" {
		opts.ApacheCtl = defaultApacheCtl
	}
	return &ApacheAdapter{
		runner:            run,
		sitesAvailableDir: opts.SitesAvailableDir,
		sitesEnabledDir:   opts.SitesEnabledDir,
		logDir:            opts.LogDir,
		hostsFile:         opts.HostsFile,
		serviceName:       opts.ServiceName,
		apacheCtl:         opts.ApacheCtl,
		tmpl:              template.Must(template.New("vhost").Parse(vhostTemplate)),
	}
}

func (a *ApacheAdapter) vhostPath(siteID string) string {
	return filepath.Join(a.sitesAvailableDir, siteID+".conf")
}

// Domain returns the local development domain for a site id.
func Domain(siteID string) string {
	return siteID + localSuffix
}

// HostsLine returns the exact hosts-file line for a site id. Matching and
// removal use whole-line equality, never substring matching.
func HostsLine(siteID string) string {
	return loopbackAddr + " " + Domain(siteID)
}

// WriteVhostConfig renders and writes the site vhost configuration.
func (a *ApacheAdapter) WriteVhostConfig(_ context.Context, siteID, docRoot string) error {
	model := struct {
		ServerName   string
		DocumentRoot string
		ErrorLog     string
		AccessLog    string
	}{
		ServerName:   Domain(siteID),
		DocumentRoot: docRoot,
		ErrorLog:     filepath.Join(a.logDir, siteID+"_error.log"),
		AccessLog:    filepath.Join(a.logDir, siteID+"_access.log"),
	}

	var buf bytes.Buffer
	if err := a.tmpl.Execute(&buf, model); err != nil {
		return fmt.Errorf("render vhost template: %w", err)
	}
	if err := os.WriteFile(a.vhostPath(siteID), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write vhost config: %w", err)
	}
	return nil
}

// RemoveVhostConfig deletes the site vhost configuration file.
func (a *ApacheAdapter) RemoveVhostConfig(_ context.Context, siteID string) error {
	if err := os.Remove(a.vhostPath(siteID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove vhost config: %w", err)
	}
	return nil
}

// VhostConfigExists reports whether the site vhost configuration exists.
func (a *ApacheAdapter) VhostConfigExists(siteID string) (bool, error) {
	_, err := os.Stat(a.vhostPath(siteID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat vhost config: %w", err)
}

// ListVhosts returns site ids that have a vhost configuration file.
func (a *ApacheAdapter) ListVhosts() ([]string, error) {
	entries, err := os.ReadDir(a.sitesAvailableDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sites-available: %w", err)
	}
	var sites []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".conf"); ok && !e.IsDir() {
			sites = append(sites, name)
		}
	}
	return sites, nil
}

// ValidateConfig runs the web server's configuration syntax check.
func (a *ApacheAdapter) ValidateConfig(ctx context.Context) error {
	if out, err := a.runner.Run(ctx, a.apacheCtl, "configtest"); err != nil {
		return fmt.Errorf("apache configtest failed: %w (%s)", err, strings.TrimSpace(out))
	}
	return nil
}

// Enable activates the site vhost.
func (a *ApacheAdapter) Enable(ctx context.Context, siteID string) error {
	if _, err := a.runner.Run(ctx, "a2ensite", siteID+".conf"); err != nil {
		return fmt.Errorf("enable site %s: %w", siteID, err)
	}
	return nil
}

// Disable deactivates the site vhost.
func (a *ApacheAdapter) Disable(ctx context.Context, siteID string) error {
	if _, err := a.runner.Run(ctx, "a2dissite", siteID+".conf"); err != nil {
		return fmt.Errorf("disable site %s: %w", siteID, err)
	}
	return nil
}

// IsEnabled reports whether the site vhost is linked into sites-enabled.
func (a *ApacheAdapter) IsEnabled(siteID string) (bool, error) {
	_, err := os.Lstat(filepath.Join(a.sitesEnabledDir, siteID+".conf"))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat enabled vhost: %w", err)
}

// Reload reloads the web server service.
func (a *ApacheAdapter) Reload(ctx context.Context) error {
	if _, err := a.runner.Run(ctx, "systemctl", "reload", a.serviceName); err != nil {
		return fmt.Errorf("reload %s: %w", a.serviceName, err)
	}
	return nil
}

// IsRunning reports whether the web server service is active.
func (a *ApacheAdapter) IsRunning(ctx context.Context) (bool, error) {
	out, err := a.runner.Run(ctx, "systemctl", "is-active", a.serviceName)
	if err != nil {
		// systemctl exits non-zero for inactive units; the output still
		// tells the two cases apart.
		state := strings.TrimSpace(strings.ToLower(out))
		if state == "inactive" || state == "failed" || state == "unknown" || state == "deactivating" {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(out) == "active", nil
}

// AddHostsEntry appends the site's hosts line, preserving every existing
// line byte for byte.
func (a *ApacheAdapter) AddHostsEntry(_ context.Context, siteID string) error {
	content, err := os.ReadFile(a.hostsFile)
	if err != nil {
		return fmt.Errorf("read hosts file: %w", err)
	}
	line := HostsLine(siteID)
	if hostsContains(content, line) {
		return fmt.Errorf("hosts entry for %s already present", Domain(siteID))
	}
	var buf bytes.Buffer
	buf.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(line)
	buf.WriteByte('\n')
	if err := os.WriteFile(a.hostsFile, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write hosts file: %w", err)
	}
	return nil
}

// RemoveHostsEntry removes the site's exact hosts line. All other lines are
// left untouched.
func (a *ApacheAdapter) RemoveHostsEntry(_ context.Context, siteID string) error {
	content, err := os.ReadFile(a.hostsFile)
	if err != nil {
		return fmt.Errorf("read hosts file: %w", err)
	}
	line := HostsLine(siteID)
	lines := strings.Split(string(content), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) == line {
			continue
		}
		kept = append(kept, l)
	}
	if err := os.WriteFile(a.hostsFile, []byte(strings.Join(kept, "\n")), 0o644); err != nil {
		return fmt.Errorf("write hosts file: %w", err)
	}
	return nil
}

// HostsEntryExists reports whether the site's exact hosts line is present.
func (a *ApacheAdapter) HostsEntryExists(siteID string) (bool, error) {
	content, err := os.ReadFile(a.hostsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read hosts file: %w", err)
	}
	return hostsContains(content, HostsLine(siteID)), nil
}

func hostsContains(content []byte, line string) bool {
	for _, l := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(l) == line {
			return true
		}
	}
	return false
}
