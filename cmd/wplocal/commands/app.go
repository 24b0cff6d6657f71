package commands

import (
	"context"
	"fmt"

	"github.com/wplocal/wplocal/pkg/adapters"
	"github.com/wplocal/wplocal/pkg/config"
	"github.com/wplocal/wplocal/pkg/engine"
	"github.com/wplocal/wplocal/pkg/runner"
	"github.com/wplocal/wplocal/pkg/stores"
	"github.com/wplocal/wplocal/pkg/telemetry"
)

// app wires configuration, telemetry, the run-history store, and the
// resource adapters into the engine entry points. One app is built per
// command invocation and closed when the command returns.
type app struct {
	cfg    config.Config
	logger *telemetry.Logger
	tracer *telemetry.Tracer
	store  *stores.SQLiteStore
	rec    engine.Recorder

	fs  *adapters.FilesystemAdapter
	web *adapters.ApacheAdapter
	db  *adapters.MySQLAdapter
	cms *adapters.CmsAdapter
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}

	tracer, err := telemetry.NewTracer(cfg.Telemetry.Tracing, cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}

	db, err := adapters.NewMySQLAdapter(adapters.MySQLAdapterOptions{DSN: cfg.DatabaseDSN})
	if err != nil {
		return nil, err
	}

	run := runner.ExecRunner{}
	a := &app{
		cfg:    cfg,
		logger: logger,
		tracer: tracer,
		rec:    engine.NopRecorder{},
		fs:     adapters.NewFilesystemAdapter(),
		web: adapters.NewApacheAdapter(run, adapters.ApacheAdapterOptions{
			SitesAvailableDir: cfg.SitesAvailableDir,
			SitesEnabledDir:   cfg.SitesEnabledDir,
			LogDir:            cfg.LogDir,
			HostsFile:         cfg.HostsFile,
			ServiceName:       cfg.ApacheService,
			ApacheCtl:         cfg.ApacheCtl,
		}),
		db: db,
		cms: adapters.NewCmsAdapter(run, adapters.CmsAdapterOptions{
			WPCLIPath: cfg.WPCLIPath,
			AllowRoot: cfg.WPAllowRoot,
		}),
	}

	// Run-history recording is best effort: a broken history database must
	// never block provisioning or removal.
	if cfg.StateDBPath != "" {
		store, err := stores.NewSQLiteStore(cfg.StateDBPath)
		if err == nil {
			err = store.Init(ctx)
		}
		if err == nil {
			err = store.Migrate(ctx)
		}
		if err != nil {
			z := logger.Z()
			z.Warn().Err(err).Str("path", cfg.StateDBPath).
				Msg("run history unavailable, continuing without it")
		} else {
			a.store = store
			a.rec = stores.NewRecorder(store, logger.Z())
		}
	}

	return a, nil
}

func (a *app) Close(ctx context.Context) {
	z := a.logger.Z()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			z.Warn().Err(err).Msg("failed to close history store")
		}
	}
	if err := a.db.Close(); err != nil {
		z.Warn().Err(err).Msg("failed to close database connection")
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		z.Warn().Err(err).Msg("failed to shut down tracer")
	}
}

func (a *app) provisioner() (*engine.Provisioner, error) {
	dirMode, err := a.cfg.ParsedDirMode()
	if err != nil {
		return nil, err
	}
	fileMode, err := a.cfg.ParsedFileMode()
	if err != nil {
		return nil, err
	}
	opts := engine.ProvisionerOptions{
		WebRoot:  a.cfg.WebRoot,
		Owner:    a.cfg.SiteOwner,
		DirMode:  dirMode,
		FileMode: fileMode,
	}
	return engine.NewProvisioner(opts, a.fs, a.web, a.db, a.cms, a.rec, a.tracer, a.logger.Z()), nil
}

func (a *app) decommissioner() *engine.Decommissioner {
	return engine.NewDecommissioner(a.cfg.WebRoot, a.fs, a.web, a.db, a.rec, a.tracer, a.logger.Z())
}

func (a *app) inspector() *engine.Inspector {
	return engine.NewInspector(a.cfg.WebRoot, a.fs, a.web, a.db, a.cms)
}
