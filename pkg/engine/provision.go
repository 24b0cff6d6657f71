package engine

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wplocal/wplocal/pkg/telemetry"
)

// htaccessContent is the fixed WordPress rewrite block written into every
// document root. Requests for files and directories that do not exist fall
// through to the front controller.
const htaccessContent = `# BEGIN WordPress
<IfModule mod_rewrite.c>
RewriteEngine On
RewriteBase /
RewriteRule ^index\.php$ - [L]
RewriteCond %{REQUEST_FILENAME} !-f
RewriteCond %{REQUEST_FILENAME} !-d
RewriteRule . /index.php [L]
</IfModule>
# END WordPress
`

// ProvisionerOptions carries the host conventions the orchestrator needs.
type ProvisionerOptions struct {
	// WebRoot is the directory under which site document roots are created.
	WebRoot string

	// Owner is the system user that should own provisioned trees. Empty
	// skips the ownership change (useful for unprivileged runs and tests).
	Owner string

	// DirMode and FileMode are applied recursively in the final step.
	DirMode  fs.FileMode
	FileMode fs.FileMode
}

// Provisioner executes the ordered provisioning sequence for one site and
// owns its compensation stack for the duration of a call.
//
// A Provision call is a transaction: the first step failure (or a context
// cancellation between steps) aborts the forward sequence and compensates
// every completed step in reverse order. Once Provision returns successfully
// the transaction is closed and nothing will be compensated, even if the
// process dies later.
type Provisioner struct {
	opts    ProvisionerOptions
	fs      Filesystem
	web     WebServer
	db      Database
	cms     CMS
	checker *Checker
	rec     Recorder
	tracer  *telemetry.Tracer
	log     zerolog.Logger
}

// NewProvisioner constructs a provisioner over the given adapters.
func NewProvisioner(
	opts ProvisionerOptions,
	filesystem Filesystem,
	web WebServer,
	db Database,
	cms CMS,
	rec Recorder,
	tracer *telemetry.Tracer,
	log zerolog.Logger,
) *Provisioner {
	if rec == nil {
		rec = NopRecorder{}
	}
	if opts.DirMode == 0 {
		opts.DirMode = 0o755
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0o644
	}
	return &Provisioner{
		opts:    opts,
		fs:      filesystem,
		web:     web,
		db:      db,
		cms:     cms,
		checker: NewChecker(filesystem, web, db, cms, opts.WebRoot),
		rec:     rec,
		tracer:  tracer,
		log:     log.With().Str("component", "provisioner").Logger(),
	}
}

// DocumentRoot returns the document root path for a site id.
func (p *Provisioner) DocumentRoot(siteID string) string {
	return filepath.Join(p.opts.WebRoot, siteID)
}

// Provision provisions one site end to end. Preconditions (validation,
// conflict scan, dependency probe) fail fast with no side effects; any step
// failure afterwards triggers full reverse compensation and returns the
// original error, with compensation outcomes attached as detail.
func (p *Provisioner) Provision(ctx context.Context, req SiteRequest) (*SiteInfo, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := p.checker.CheckAvailable(ctx, req.SiteID); err != nil {
		return nil, err
	}
	if err := p.checker.CheckDependencies(ctx); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()
	p.rec.RunStarted(ctx, runID, "provision", req.SiteID, started)
	p.log.Info().Str("run_id", runID).Str("site", req.SiteID).Msg("provisioning site")

	steps := p.buildSteps(req)
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			cause := NewAdapterError("provisioning interrupted", err).
				WithResource(st.Resource).
				WithStep(st.Name)
			return nil, p.abort(ctx, runID, steps, cause)
		}

		err := p.runStep(ctx, st)
		if err != nil {
			p.rec.StepObserved(ctx, runID, st.Name, ActionApply, "failed", err.Error())
			cause := p.classify(st, err)
			return nil, p.abort(ctx, runID, steps, cause)
		}
		st.completed = true
		p.rec.StepObserved(ctx, runID, st.Name, ActionApply, "succeeded", "")
		p.log.Debug().Str("step", st.Name).Msg("step completed")
	}

	p.rec.RunFinished(ctx, runID, "succeeded", "", time.Now())
	p.log.Info().
		Str("site", req.SiteID).
		Dur("elapsed", time.Since(started)).
		Msg("site provisioned")

	return &SiteInfo{
		SiteID:       req.SiteID,
		Domain:       req.Domain(),
		URL:          req.URL(),
		DocumentRoot: p.DocumentRoot(req.SiteID),
		AdminUser:    req.AdminUser,
		DBName:       req.DBName,
		DBUser:       req.DBUser,
	}, nil
}

func (p *Provisioner) runStep(ctx context.Context, st *Step) error {
	if p.tracer != nil {
		stepCtx, span := p.tracer.StartStep(ctx, "provision", st.Name)
		err := st.Run(stepCtx)
		p.tracer.EndStep(span, err)
		return err
	}
	return st.Run(ctx)
}

// classify wraps a raw step error into a classified SiteError, preserving an
// existing classification if the step already produced one.
func (p *Provisioner) classify(st *Step, err error) *SiteError {
	var siteErr *SiteError
	if errors.As(err, &siteErr) {
		if siteErr.Step == "" {
			siteErr.Step = st.Name
		}
		if siteErr.Resource == "" {
			siteErr.Resource = st.Resource
		}
		return siteErr
	}
	kind := st.FailKind
	if kind == "" {
		kind = KindAdapter
	}
	return (&SiteError{Kind: kind, Message: "step failed", Err: err}).
		WithResource(st.Resource).
		WithStep(st.Name)
}

// abort compensates every completed step in reverse order and returns the
// original cause with the cleanup outcome attached. Compensation runs on a
// cancellation-immune context: an operator interrupt must not be able to
// stop the rollback it triggered.
func (p *Provisioner) abort(ctx context.Context, runID string, steps []*Step, cause *SiteError) error {
	cleanupCtx := context.WithoutCancel(ctx)
	p.log.Warn().Str("run_id", runID).Str("step", cause.Step).Msg("step failed, rolling back completed steps")

	var compensated, failures []string
	for i := len(steps) - 1; i >= 0; i-- {
		st := steps[i]
		if !st.completed || st.Compensate == nil {
			continue
		}
		if err := st.Compensate(cleanupCtx); err != nil {
			cerr := NewCompensationError("rollback step failed", err).
				WithResource(st.Resource).
				WithStep(st.Name)
			// Best effort only: log, record, keep unwinding.
			p.log.Error().Err(cerr).Str("step", st.Name).Msg("compensation failed")
			p.rec.StepObserved(cleanupCtx, runID, st.Name, ActionCompensate, "failed", cerr.Error())
			failures = append(failures, st.Name)
			continue
		}
		p.rec.StepObserved(cleanupCtx, runID, st.Name, ActionCompensate, "succeeded", "")
		p.log.Info().Str("step", st.Name).Msg("compensated")
		compensated = append(compensated, st.Name)
	}

	if len(compensated) > 0 {
		cause.WithDetail("compensated_steps", compensated)
	}
	if len(failures) > 0 {
		cause.WithDetail("compensation_failures", failures)
	}

	status := "rolled_back"
	if len(failures) > 0 {
		status = "failed"
	}
	p.rec.RunFinished(cleanupCtx, runID, status, cause.Error(), time.Now())
	return cause
}

// buildSteps assembles the fixed forward sequence with paired compensations.
// Steps 4, 5, and 10 have no compensation of their own: their effects live
// inside the site directory and are erased by step 1's recursive delete.
func (p *Provisioner) buildSteps(req SiteRequest) []*Step {
	docRoot := p.DocumentRoot(req.SiteID)

	return []*Step{
		{
			Name:     StepCreateDirectory,
			Resource: ResourceDirectory,
			Run: func(ctx context.Context) error {
				return p.fs.CreateDir(ctx, docRoot, p.opts.DirMode)
			},
			Compensate: func(ctx context.Context) error {
				return p.fs.DeleteDir(ctx, docRoot)
			},
		},
		{
			Name:     StepCreateDatabase,
			Resource: ResourceDatabase,
			Run: func(ctx context.Context) error {
				return p.db.CreateDatabase(ctx, req.DBName)
			},
			Compensate: func(ctx context.Context) error {
				return p.db.DropDatabase(ctx, req.DBName)
			},
		},
		{
			Name:     StepCreateDBUser,
			Resource: ResourceDBUser,
			Run: func(ctx context.Context) error {
				if err := p.db.CreateUser(ctx, req.DBUser, req.DBPassword); err != nil {
					return err
				}
				if err := p.db.GrantAll(ctx, req.DBUser, req.DBName); err != nil {
					// Keep the step atomic from the orchestrator's point of
					// view: a half-created user would escape the
					// compensation stack.
					if dropErr := p.db.DropUser(ctx, req.DBUser); dropErr != nil {
						p.log.Error().Err(dropErr).Str("user", req.DBUser).
							Msg("failed to drop user after grant failure")
					}
					return err
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return p.db.DropUser(ctx, req.DBUser)
			},
		},
		{
			Name:     StepInstallCMS,
			Resource: ResourceCMS,
			Run: func(ctx context.Context) error {
				if err := p.cms.Download(ctx, docRoot); err != nil {
					return err
				}
				if err := p.cms.WriteConfig(ctx, docRoot, req.DBName, req.DBUser, req.DBPassword); err != nil {
					return err
				}
				return p.cms.Install(ctx, docRoot, req.URL(), req.SiteID, req.AdminUser, req.AdminPassword, req.AdminEmail)
			},
		},
		{
			Name:     StepWriteHtaccess,
			Resource: ResourceDirectory,
			Run: func(ctx context.Context) error {
				return p.fs.WriteFile(ctx, filepath.Join(docRoot, ".htaccess"), []byte(htaccessContent), p.opts.FileMode)
			},
		},
		{
			Name:     StepWriteVhost,
			Resource: ResourceVhost,
			Run: func(ctx context.Context) error {
				return p.web.WriteVhostConfig(ctx, req.SiteID, docRoot)
			},
			Compensate: func(ctx context.Context) error {
				enabled, err := p.web.IsEnabled(req.SiteID)
				if err == nil && enabled {
					if err := p.web.Disable(ctx, req.SiteID); err != nil {
						return err
					}
				}
				return p.web.RemoveVhostConfig(ctx, req.SiteID)
			},
		},
		{
			Name:     StepValidateConfig,
			Resource: ResourceWebServer,
			FailKind: KindConfigInvalid,
			Run: func(ctx context.Context) error {
				return p.web.ValidateConfig(ctx)
			},
		},
		{
			Name:     StepEnableSite,
			Resource: ResourceWebServer,
			Run: func(ctx context.Context) error {
				if err := p.web.Enable(ctx, req.SiteID); err != nil {
					return err
				}
				return p.web.Reload(ctx)
			},
			Compensate: func(ctx context.Context) error {
				if err := p.web.Disable(ctx, req.SiteID); err != nil {
					return err
				}
				return p.web.Reload(ctx)
			},
		},
		{
			Name:     StepAddHostsEntry,
			Resource: ResourceHosts,
			Run: func(ctx context.Context) error {
				return p.web.AddHostsEntry(ctx, req.SiteID)
			},
			Compensate: func(ctx context.Context) error {
				return p.web.RemoveHostsEntry(ctx, req.SiteID)
			},
		},
		{
			Name:     StepSetPermissions,
			Resource: ResourceDirectory,
			Run: func(ctx context.Context) error {
				return p.fs.SetOwnerAndMode(ctx, docRoot, p.opts.Owner, p.opts.DirMode, p.opts.FileMode)
			},
		},
	}
}
