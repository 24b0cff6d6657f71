package adapters

import (
	"context"
	"fmt"

	"github.com/wplocal/wplocal/pkg/runner"
)

const defaultWPCLIPath = "wp"

// CmsAdapterOptions controls how wp-cli is invoked.
type CmsAdapterOptions struct {
	// WPCLIPath is the wp-cli binary (name on PATH or absolute path).
	WPCLIPath string

	// AllowRoot passes --allow-root, needed when the tool itself runs as
	// root to manage Apache and /etc/hosts.
	AllowRoot bool
}

// CmsAdapter drives the WordPress installer through wp-cli. Every value is
// passed as its own argument vector element; user input never reaches a
// shell.
type CmsAdapter struct {
	runner    runner.Runner
	wpcli     string
	allowRoot bool
}

// NewCmsAdapter constructs a wp-cli adapter.
func NewCmsAdapter(run runner.Runner, opts CmsAdapterOptions) *CmsAdapter {
	if run == nil {
		run = runner.ExecRunner{}
	}
	if opts.WPCLIPath == "" {
		opts.WPCLIPath = defaultWPCLIPath
	}
	return &CmsAdapter{runner: run, wpcli: opts.WPCLIPath, allowRoot: opts.AllowRoot}
}

func (a *CmsAdapter) run(ctx context.Context, args ...string) error {
	if a.allowRoot {
		args = append(args, "--allow-root")
	}
	if out, err := a.runner.Run(ctx, a.wpcli, args...); err != nil {
		return fmt.Errorf("wp-cli failed: %w (%s)", err, out)
	}
	return nil
}

// IsCallable reports whether wp-cli can be executed at all.
func (a *CmsAdapter) IsCallable(ctx context.Context) error {
	if err := a.run(ctx, "cli", "version"); err != nil {
		return fmt.Errorf("wp-cli is not callable: %w", err)
	}
	return nil
}

// Download fetches the WordPress core files into the document root.
func (a *CmsAdapter) Download(ctx context.Context, path string) error {
	return a.run(ctx, "core", "download", "--path="+path)
}

// WriteConfig generates wp-config.php with the database credentials and
// debug output disabled.
func (a *CmsAdapter) WriteConfig(ctx context.Context, path, dbName, dbUser, dbPassword string) error {
	if err := a.run(ctx,
		"config", "create",
		"--path="+path,
		"--dbname="+dbName,
		"--dbuser="+dbUser,
		"--dbpass="+dbPassword,
		"--skip-check",
	); err != nil {
		return err
	}
	// Fixed debug-disable directives for a clean local install.
	for _, constant := range []string{"WP_DEBUG", "WP_DEBUG_LOG", "WP_DEBUG_DISPLAY"} {
		if err := a.run(ctx, "config", "set", constant, "false", "--raw", "--path="+path); err != nil {
			return err
		}
	}
	return nil
}

// Install runs the WordPress install routine with the admin credentials.
func (a *CmsAdapter) Install(ctx context.Context, path, url, title, adminUser, adminPassword, adminEmail string) error {
	return a.run(ctx,
		"core", "install",
		"--path="+path,
		"--url="+url,
		"--title="+title,
		"--admin_user="+adminUser,
		"--admin_password="+adminPassword,
		"--admin_email="+adminEmail,
		"--skip-email",
	)
}

// SetOption updates a single WordPress option.
func (a *CmsAdapter) SetOption(ctx context.Context, path, key, value string) error {
	return a.run(ctx, "option", "update", key, value, "--path="+path)
}
