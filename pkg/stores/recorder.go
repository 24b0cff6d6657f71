package stores

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wplocal/wplocal/pkg/engine"
)

// Recorder adapts the store to the engine's Recorder interface. Recording
// is best-effort: failures are logged and swallowed so audit problems can
// never fail a provisioning run.
type Recorder struct {
	store *SQLiteStore
	log   zerolog.Logger
}

// NewRecorder wraps a store for use by the engine.
func NewRecorder(store *SQLiteStore, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log.With().Str("component", "recorder").Logger()}
}

// RunStarted records the start of an invocation.
func (r *Recorder) RunStarted(ctx context.Context, runID, operation, siteID string, at time.Time) {
	err := r.store.CreateRun(ctx, &Run{
		ID:        runID,
		Operation: operation,
		SiteID:    siteID,
		Status:    RunStatusRunning,
		StartedAt: at,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("run_id", runID).Msg("failed to record run start")
	}
}

// StepObserved records one step outcome.
func (r *Recorder) StepObserved(ctx context.Context, runID, step string, action engine.StepAction, outcome, detail string) {
	err := r.store.AppendEvent(ctx, &Event{
		RunID:     runID,
		Step:      step,
		Action:    string(action),
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	if err != nil {
		r.log.Warn().Err(err).Str("run_id", runID).Str("step", step).Msg("failed to record step event")
	}
}

// RunFinished records the final status of an invocation.
func (r *Recorder) RunFinished(ctx context.Context, runID, status, errMsg string, at time.Time) {
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	if err := r.store.FinishRun(ctx, runID, RunStatus(status), msg, at); err != nil {
		r.log.Warn().Err(err).Str("run_id", runID).Msg("failed to record run finish")
	}
}
