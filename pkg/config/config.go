// Package config defines the immutable tool configuration. A Config is
// loaded once at process start (defaults, optionally overridden by a YAML
// file) and passed into every component at construction; there is no
// process-wide mutable configuration state.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wplocal/wplocal/pkg/telemetry"
)

// Config carries every host convention the tool needs. Paths follow a
// stock Debian/Ubuntu Apache + MySQL layout by default.
type Config struct {
	// WebRoot is the directory under which site document roots live.
	WebRoot string `yaml:"web_root" validate:"required"`

	// SitesAvailableDir and SitesEnabledDir are the Apache vhost dirs.
	SitesAvailableDir string `yaml:"sites_available_dir" validate:"required"`
	SitesEnabledDir   string `yaml:"sites_enabled_dir" validate:"required"`

	// LogDir receives the per-site Apache log files.
	LogDir string `yaml:"log_dir" validate:"required"`

	// HostsFile is the local DNS substitute.
	HostsFile string `yaml:"hosts_file" validate:"required"`

	// ApacheService is the systemd unit reloaded after vhost changes.
	ApacheService string `yaml:"apache_service" validate:"required"`

	// ApacheCtl is the binary used for configtest.
	ApacheCtl string `yaml:"apachectl" validate:"required"`

	// WPCLIPath is the wp-cli binary.
	WPCLIPath string `yaml:"wp_cli_path" validate:"required"`

	// WPAllowRoot passes --allow-root to wp-cli.
	WPAllowRoot bool `yaml:"wp_allow_root"`

	// DatabaseDSN is a go-sql-driver DSN for an administrative account.
	DatabaseDSN string `yaml:"database_dsn" validate:"required"`

	// SiteOwner is the system user that owns provisioned trees. Empty
	// skips the ownership change.
	SiteOwner string `yaml:"site_owner"`

	// DirMode and FileMode are octal permission strings ("0755", "0644").
	DirMode  string `yaml:"dir_mode" validate:"required"`
	FileMode string `yaml:"file_mode" validate:"required"`

	// StateDBPath is the SQLite run-history database. Empty disables
	// recording.
	StateDBPath string `yaml:"state_db_path"`

	// Telemetry configures logging and tracing.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Default returns the stock Debian/Ubuntu configuration.
func Default() Config {
	return Config{
		WebRoot:           "/var/www",
		SitesAvailableDir: "/etc/apache2/sites-available",
		SitesEnabledDir:   "/etc/apache2/sites-enabled",
		LogDir:            "/var/log/apache2",
		HostsFile:         "/etc/hosts",
		ApacheService:     "apache2",
		ApacheCtl:         "apachectl",
		WPCLIPath:         "wp",
		WPAllowRoot:       true,
		DatabaseDSN:       "root@unix(/var/run/mysqld/mysqld.sock)/",
		SiteOwner:         "www-data",
		DirMode:           "0755",
		FileMode:          "0644",
		StateDBPath:       "/var/lib/wplocal/history.db",
		Telemetry:         telemetry.DefaultConfig(),
	}
}

// Load returns the default configuration overlaid with the YAML file at
// path, when path is non-empty. The result is validated before use.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(path) //nolint:gosec // Operator-supplied config path.
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var configValidator = validator.New()

// Validate checks field constraints and the permission strings.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.ParsedDirMode(); err != nil {
		return err
	}
	if _, err := c.ParsedFileMode(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry configuration: %w", err)
	}
	return nil
}

// ParsedDirMode returns DirMode as a file mode.
func (c Config) ParsedDirMode() (fs.FileMode, error) {
	return parseMode(c.DirMode)
}

// ParsedFileMode returns FileMode as a file mode.
func (c Config) ParsedFileMode() (fs.FileMode, error) {
	return parseMode(c.FileMode)
}

func parseMode(s string) (fs.FileMode, error) {
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid permission mode %q: %w", s, err)
	}
	return fs.FileMode(mode), nil
}
