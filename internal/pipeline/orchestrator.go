// Package pipeline drives one drop directory through list, fetch, parse, validate, persist and archive.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/internal/retry"
	"golang.beyond.io/tdi-ingest/internal/transport"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

// Options configures an Orchestrator.
//
// Fields:
//   - Name: The pipeline name, used in logs and metrics.
//   - Root: The source directory on the remote endpoint.
//   - Transport, Lister, Registry, Store, Retrier: Required collaborators.
//   - ProcessedDir, ErrorDir: Terminal directory names under Root.
//   - IsolateFailures: Continue with the next file after a file failed permanently.
//   - StrictRegistry: Treat device lookup errors as retriable failures instead of "not registered".
//   - Lock: Optional cycle lock shared with other pipelines or processes.
//   - LockKey: The key taken on Lock, identifying the drop directory. Defaults to Name.
//   - Metrics: Optional Prometheus collectors.
type Options struct {
	Name            string
	Root            string
	Transport       core.Transport
	Lister          *transport.Lister
	Registry        core.DeviceRegistry
	Store           core.ReportStore
	Retrier         *retry.Retrier
	ProcessedDir    string
	ErrorDir        string
	IsolateFailures bool
	StrictRegistry  bool
	Lock            core.CycleLock
	LockKey         string
	Metrics         *Metrics
}

// Orchestrator runs cycles over one drop directory. Cycles never overlap.
type Orchestrator struct {
	name            string
	root            string
	transport       core.Transport
	lister          *transport.Lister
	registry        core.DeviceRegistry
	store           core.ReportStore
	retrier         *retry.Retrier
	archiver        *archiver
	isolateFailures bool
	strictRegistry  bool
	lock            core.CycleLock
	lockKey         string
	metrics         *Metrics

	running sync.Mutex

	stateMu sync.RWMutex
	state   core.CycleState

	now          func() time.Time
	onTransition func(from core.CycleState, to core.CycleState)
}

// New validates the options and returns an idle orchestrator.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Name == "":
		return nil, fmt.Errorf("pipeline name is required")
	case opts.Transport == nil:
		return nil, fmt.Errorf("pipeline %s: transport is required", opts.Name)
	case opts.Lister == nil:
		return nil, fmt.Errorf("pipeline %s: lister is required", opts.Name)
	case opts.Registry == nil:
		return nil, fmt.Errorf("pipeline %s: device registry is required", opts.Name)
	case opts.Store == nil:
		return nil, fmt.Errorf("pipeline %s: report store is required", opts.Name)
	case opts.ProcessedDir == "" || opts.ErrorDir == "":
		return nil, fmt.Errorf("pipeline %s: processed and error directories are required", opts.Name)
	}

	key := opts.LockKey
	if key == "" {
		key = opts.Name
	}

	r := opts.Retrier
	if r == nil {
		r = retry.New(retry.DefaultAttempts, nil)
	}

	return &Orchestrator{
		name:      opts.Name,
		root:      opts.Root,
		transport: opts.Transport,
		lister:    opts.Lister,
		registry:  opts.Registry,
		store:     opts.Store,
		retrier:   r,
		archiver: &archiver{
			root:         opts.Root,
			processedDir: opts.ProcessedDir,
			errorDir:     opts.ErrorDir,
		},
		isolateFailures: opts.IsolateFailures,
		strictRegistry:  opts.StrictRegistry,
		lock:            opts.Lock,
		lockKey:         key,
		metrics:         opts.Metrics,
		state:           core.StateIdle,
		now:             time.Now,
	}, nil
}

func (o *Orchestrator) Name() string {
	return o.name
}

// State returns the current state of the orchestrator.
func (o *Orchestrator) State() core.CycleState {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

func (o *Orchestrator) transition(log zerolog.Logger, to core.CycleState) {
	o.stateMu.Lock()
	from := o.state
	o.state = to
	o.stateMu.Unlock()

	log.Debug().
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Cycle state changed")

	if o.onTransition != nil {
		o.onTransition(from, to)
	}
}

// RunCycle runs one cycle: connect, list, handle every file in listing order, close.
//
// Parameters:
//   - ctx: Cancelling ctx stops the cycle at the next I/O call or retry wait; the session is still closed.
//
// Returns:
//   - The cycle result. Err is ErrCycleInProgress when another cycle of this pipeline is running,
//     in this process or, with a cycle lock, in another one.
//
// Notes:
//   - By default the first file that fails permanently aborts the cycle and every later file
//     is reported as skipped. With IsolateFailures the cycle continues and ends aborted if any file failed.
func (o *Orchestrator) RunCycle(ctx context.Context) *core.CycleResult {
	res := &core.CycleResult{
		ID:       uuid.NewString(),
		Pipeline: o.name,
		State:    core.StateIdle,
		Started:  o.now(),
	}
	log := logx.For(o.name, res.ID)

	if !o.running.TryLock() {
		res.Err = core.ErrCycleInProgress
		log.Warn().Msg("Previous cycle still running, skipping")
		return res
	}
	defer o.running.Unlock()

	if o.lock != nil {
		release, ok, err := o.lock.Acquire(ctx, o.lockKey)
		if err != nil {
			res.Err = err
			log.Error().Err(err).Msg("Failed to acquire cycle lock, skipping")
			return res
		}
		if !ok {
			res.Err = core.ErrCycleInProgress
			log.Info().Str("lock_key", o.lockKey).Msg("Cycle lock held elsewhere, skipping")
			return res
		}
		defer release()
	}

	o.run(ctx, res, log)
	res.Duration = o.now().Sub(res.Started)

	o.metrics.observeCycle(res)

	ev := log.Info()
	if res.State == core.StateAborted {
		ev = log.Error().Stack().Err(res.Err)
	}
	ev.Str("state", res.State.String()).
		Int("files", len(res.Files)).
		Int("processed", res.Count(core.OutcomeProcessed)).
		Int("rejected", res.Count(core.OutcomeRejected)).
		Int("stuck_pending", res.Count(core.OutcomeStuckPending)).
		Int("failed", res.Count(core.OutcomeFailed)).
		Int("skipped", res.Count(core.OutcomeSkipped)).
		Dur("elapsed", res.Duration).
		Msg("Cycle finished")

	o.transition(log, core.StateIdle)
	return res
}

func (o *Orchestrator) finish(log zerolog.Logger, res *core.CycleResult, state core.CycleState, err error) {
	res.State = state
	if res.Err == nil {
		res.Err = err
	}
	o.transition(log, state)
}

func (o *Orchestrator) run(ctx context.Context, res *core.CycleResult, log zerolog.Logger) {
	o.transition(log, core.StateConnecting)

	session, err := o.transport.Connect(ctx)
	if err != nil {
		o.finish(log, res, core.StateAborted, err)
		return
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close session")
		}
	}()

	log.Debug().Str("session", session.Info()).Msg("Session opened")
	o.transition(log, core.StateListing)

	files, dirs, err := o.lister.List(ctx, session, o.root)
	if err != nil {
		o.finish(log, res, core.StateAborted, err)
		return
	}

	if len(files) == 0 {
		log.Debug().Str("root", o.root).Msg("Nothing to do")
		o.finish(log, res, core.StateSucceeded, nil)
		return
	}

	res.Files = make([]core.FileResult, len(files))
	for i, f := range files {
		res.Files[i] = core.FileResult{Entry: f, Outcome: core.OutcomeSkipped}
	}

	if err := o.archiver.EnsureDirs(ctx, session, dirs); err != nil {
		o.finish(log, res, core.StateAborted, err)
		return
	}

	o.transition(log, core.StateProcessing)

	var firstErr error
	for i, entry := range files {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		fr := o.processFile(ctx, session, entry, log)
		res.Files[i] = fr

		if fr.Err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = fr.Err
		}
		if !o.isolateFailures {
			break
		}
	}

	if firstErr != nil {
		o.finish(log, res, core.StateAborted, firstErr)
		return
	}
	o.finish(log, res, core.StateSucceeded, nil)
}

// processFile handles one file under the retrier and classifies the final result.
func (o *Orchestrator) processFile(ctx context.Context, s core.Session, entry core.Entry, log zerolog.Logger) core.FileResult {
	log = log.With().Str("file", entry.Name).Logger()
	log.Debug().Msg("Processing file")

	out, attempts, err := retry.Do(ctx, o.retrier, func(ctx context.Context, n int) (attempt, error) {
		a, err := o.handleFile(ctx, s, entry, log.With().Int("attempt", n).Logger())
		if err != nil && n < o.retrier.Attempts() {
			o.metrics.retried(o.name)
			log.Warn().
				Int("attempt", n).
				Int("max_attempts", o.retrier.Attempts()).
				Err(err).
				Msg("File attempt failed, retrying")
		}
		return a, err
	})

	fr := core.FileResult{Entry: entry, Attempts: attempts}
	if err == nil {
		fr.Outcome = out.outcome
		fr.Digest = out.digest
		fr.Reason = out.reason
		return fr
	}

	if core.IsKind(err, core.KindParse) {
		fr.Outcome = core.OutcomeStuckPending
		fr.Reason = "unparseable"
		fr.Err = err
		log.Error().Err(err).Int("attempts", attempts).Msg("File could not be parsed, leaving it in place")
		return fr
	}

	fr.Outcome = core.OutcomeFailed
	fr.Err = core.Escalate(err, entry.Path)
	fr.Reason = core.KindOf(fr.Err).String()
	log.Error().Stack().Err(fr.Err).Int("attempts", attempts).Msg("File failed permanently, leaving it in place")
	return fr
}
