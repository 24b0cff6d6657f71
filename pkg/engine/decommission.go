package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wplocal/wplocal/pkg/telemetry"
)

// RemovalOutcome is the per-step result of a decommissioning sweep.
type RemovalOutcome string

const (
	// OutcomeRemoved means the resource existed and was removed.
	OutcomeRemoved RemovalOutcome = "removed"

	// OutcomeAbsent means the resource was already gone; treated as success
	// so removal stays safely re-runnable.
	OutcomeAbsent RemovalOutcome = "absent"

	// OutcomeFailed means the removal attempt failed; the sweep continues.
	OutcomeFailed RemovalOutcome = "failed"
)

// RemovalResult reports one removal step.
type RemovalResult struct {
	Step     string         `json:"step"`
	Resource string         `json:"resource"`
	Outcome  RemovalOutcome `json:"outcome"`
	Detail   string         `json:"detail,omitempty"`
}

// RemovalReport aggregates all step results of one decommissioning run.
type RemovalReport struct {
	SiteID string          `json:"site_id"`
	Steps  []RemovalResult `json:"steps"`
}

// Failed returns the names of steps that failed.
func (r *RemovalReport) Failed() []string {
	var failed []string
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			failed = append(failed, s.Step)
		}
	}
	return failed
}

// Decommissioner removes a site across all resources. There is no
// compensation stack here: removal is designed to be safely re-runnable to
// completion, with every step tolerating an already-absent resource.
type Decommissioner struct {
	webRoot string
	fs      Filesystem
	web     WebServer
	db      Database
	rec     Recorder
	tracer  *telemetry.Tracer
	log     zerolog.Logger
}

// NewDecommissioner constructs a decommissioner over the given adapters.
func NewDecommissioner(
	webRoot string,
	filesystem Filesystem,
	web WebServer,
	db Database,
	rec Recorder,
	tracer *telemetry.Tracer,
	log zerolog.Logger,
) *Decommissioner {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Decommissioner{
		webRoot: webRoot,
		fs:      filesystem,
		web:     web,
		db:      db,
		rec:     rec,
		tracer:  tracer,
		log:     log.With().Str("component", "decommissioner").Logger(),
	}
}

// Decommission removes the site's directory, vhost, hosts entry, database,
// and database user in a fixed order. It requires explicit confirmation and
// returns a per-step report; individual step failures are collected rather
// than aborting the sweep, since the steps are independent and idempotent.
// The final configtest/reload failure is fatal but earlier deletions stand.
func (d *Decommissioner) Decommission(ctx context.Context, siteID, dbName, dbUser string, confirmed bool) (*RemovalReport, error) {
	if !confirmed {
		return nil, NewNotConfirmedError("removal not confirmed; no changes made")
	}
	if !siteIDPattern.MatchString(siteID) {
		return nil, NewValidationError(fmt.Sprintf("invalid site id %q", siteID), nil)
	}
	if !identPattern.MatchString(dbName) {
		return nil, NewValidationError(fmt.Sprintf("invalid database name %q", dbName), nil)
	}
	if !identPattern.MatchString(dbUser) {
		return nil, NewValidationError(fmt.Sprintf("invalid database user %q", dbUser), nil)
	}

	runID := uuid.NewString()
	d.rec.RunStarted(ctx, runID, "decommission", siteID, time.Now())
	d.log.Info().Str("run_id", runID).Str("site", siteID).Msg("removing site")

	report := &RemovalReport{SiteID: siteID}
	docRoot := filepath.Join(d.webRoot, siteID)

	type removalStep struct {
		name     string
		resource string
		run      func(ctx context.Context) (RemovalOutcome, error)
	}

	steps := []removalStep{
		{StepDisableSite, ResourceWebServer, func(ctx context.Context) (RemovalOutcome, error) {
			enabled, err := d.web.IsEnabled(siteID)
			if err != nil {
				return OutcomeFailed, err
			}
			if !enabled {
				return OutcomeAbsent, nil
			}
			if err := d.web.Disable(ctx, siteID); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeRemoved, nil
		}},
		{StepRemoveVhost, ResourceVhost, func(ctx context.Context) (RemovalOutcome, error) {
			exists, err := d.web.VhostConfigExists(siteID)
			if err != nil {
				return OutcomeFailed, err
			}
			if !exists {
				return OutcomeAbsent, nil
			}
			if err := d.web.RemoveVhostConfig(ctx, siteID); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeRemoved, nil
		}},
		{StepRemoveDirectory, ResourceDirectory, func(ctx context.Context) (RemovalOutcome, error) {
			exists, err := d.fs.Exists(docRoot)
			if err != nil {
				return OutcomeFailed, err
			}
			if !exists {
				return OutcomeAbsent, nil
			}
			if err := d.fs.DeleteDir(ctx, docRoot); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeRemoved, nil
		}},
		{StepDropDatabase, ResourceDatabase, func(ctx context.Context) (RemovalOutcome, error) {
			exists, err := d.db.DatabaseExists(ctx, dbName)
			if err != nil {
				return OutcomeFailed, err
			}
			if !exists {
				return OutcomeAbsent, nil
			}
			if err := d.db.DropDatabase(ctx, dbName); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeRemoved, nil
		}},
		{StepDropDBUser, ResourceDBUser, func(ctx context.Context) (RemovalOutcome, error) {
			exists, err := d.db.UserExists(ctx, dbUser)
			if err != nil {
				return OutcomeFailed, err
			}
			if !exists {
				return OutcomeAbsent, nil
			}
			if err := d.db.DropUser(ctx, dbUser); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeRemoved, nil
		}},
		{StepRemoveHostsEntry, ResourceHosts, func(ctx context.Context) (RemovalOutcome, error) {
			exists, err := d.web.HostsEntryExists(siteID)
			if err != nil {
				return OutcomeFailed, err
			}
			if !exists {
				return OutcomeAbsent, nil
			}
			if err := d.web.RemoveHostsEntry(ctx, siteID); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeRemoved, nil
		}},
		{StepReloadWebServer, ResourceWebServer, func(ctx context.Context) (RemovalOutcome, error) {
			if err := d.web.ValidateConfig(ctx); err != nil {
				return OutcomeFailed, err
			}
			if err := d.web.Reload(ctx); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeRemoved, nil
		}},
	}

	for _, st := range steps {
		outcome, err := d.runRemovalStep(ctx, st.name, st.run)
		result := RemovalResult{Step: st.name, Resource: st.resource, Outcome: outcome}
		if err != nil {
			result.Detail = err.Error()
			d.log.Error().Err(err).Str("step", st.name).Msg("removal step failed")
		}
		d.rec.StepObserved(ctx, runID, st.name, ActionRemove, string(outcome), result.Detail)
		report.Steps = append(report.Steps, result)
	}

	if failed := report.Failed(); len(failed) > 0 {
		err := NewAdapterError("removal completed with failures", nil).
			WithDetail("failed_steps", failed)
		d.rec.RunFinished(ctx, runID, "failed", err.Error(), time.Now())
		return report, err
	}

	d.rec.RunFinished(ctx, runID, "succeeded", "", time.Now())
	d.log.Info().Str("site", siteID).Msg("site removed")
	return report, nil
}

func (d *Decommissioner) runRemovalStep(ctx context.Context, name string, run func(ctx context.Context) (RemovalOutcome, error)) (RemovalOutcome, error) {
	if d.tracer != nil {
		stepCtx, span := d.tracer.StartStep(ctx, "decommission", name)
		outcome, err := run(stepCtx)
		d.tracer.EndStep(span, err)
		return outcome, err
	}
	return run(ctx)
}
