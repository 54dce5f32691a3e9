package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"membersync/core/logger"
)

// RunState is the lifecycle state of a single sync run.
type RunState string

const (
	StateInitializing          RunState = "initializing"
	StateSyncingEntities       RunState = "syncing_entities"
	StateSyncingLedger         RunState = "syncing_ledger"
	StateReconcilingAssociated RunState = "reconciling_associated"
	StateRetryWait             RunState = "retry_wait"
	StateCompleted             RunState = "completed"
	StateFailed                RunState = "failed"
	StateCancelled             RunState = "cancelled"
)

// Terminal reports whether the state is final.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Job names. Manual enqueues are single-flighted per name; the periodic job
// runs under its own name and may legitimately overlap a manual run's
// wall-clock window (writes are idempotent upserts, so interleaving is safe).
const (
	JobManual   = "manual"
	JobPeriodic = "periodic"
)

// Options selects which entity groups a run synchronizes.
type Options struct {
	SyncCustomers bool `json:"sync_customers"`
	SyncOrders    bool `json:"sync_orders"`
	SyncEvents    bool `json:"sync_events"`
	SyncPayments  bool `json:"sync_payments"`
	SyncLedger    bool `json:"sync_ledger"`
	SyncSocios    bool `json:"sync_socios"`
	// IgnoreCache disables the date_modified freshness check for events,
	// forcing full materialization including secondary requests.
	IgnoreCache bool `json:"ignore_cache"`
}

// DefaultOptions enables every entity group with caching on.
func DefaultOptions() Options {
	return Options{
		SyncCustomers: true,
		SyncOrders:    true,
		SyncEvents:    true,
		SyncPayments:  true,
		SyncLedger:    true,
		SyncSocios:    true,
	}
}

// Failure kinds reported on permanent failure.
const (
	FailureNetwork  = "network"
	FailureParse    = "parse"
	FailureInternal = "internal"
)

// classify maps an error onto a user-reportable failure kind.
func classify(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureNetwork
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return FailureParse
	}
	return FailureInternal
}

// RunError is the structured error carried by a permanently failed run.
type RunError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RunSnapshot is a point-in-time copy of a run's observable state.
type RunSnapshot struct {
	ID      string    `json:"id"`
	Job     string    `json:"job"`
	State   RunState  `json:"state"`
	Attempt int       `json:"attempt"`
	Step    string    `json:"step,omitempty"`
	Current int       `json:"current,omitempty"`
	Max     int       `json:"max,omitempty"`
	Error   *RunError `json:"error,omitempty"`
}

// ProgressSink receives step/fraction updates during a run. The engine never
// blocks on a sink call succeeding.
type ProgressSink interface {
	Report(step string, current, max int)
}

// Run is one engine invocation: its options, lifecycle state and progress.
// All mutation goes through the mutex; Snapshot is safe from any goroutine.
type Run struct {
	ID      string
	Job     string
	Options Options

	mu      sync.Mutex
	state   RunState
	attempt int
	step    string
	current int
	max     int
	failure *RunError

	cancel context.CancelFunc
	done   chan struct{}
}

// Report implements ProgressSink.
func (r *Run) Report(step string, current, max int) {
	r.mu.Lock()
	r.step = step
	r.current = current
	r.max = max
	r.mu.Unlock()
}

// SetState moves the run to the given lifecycle state.
func (r *Run) SetState(s RunState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Snapshot returns a copy of the run's observable state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunSnapshot{
		ID:      r.ID,
		Job:     r.Job,
		State:   r.state,
		Attempt: r.attempt,
		Step:    r.step,
		Current: r.current,
		Max:     r.max,
		Error:   r.failure,
	}
}

// Done returns a channel closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) beginAttempt(attempt int) {
	r.mu.Lock()
	r.attempt = attempt
	r.state = StateInitializing
	r.step = ""
	r.current = 0
	r.max = 0
	r.mu.Unlock()
}

func (r *Run) failPermanently(kind, message string) {
	r.mu.Lock()
	r.state = StateFailed
	r.failure = &RunError{Kind: kind, Message: message}
	r.mu.Unlock()
}

// JobFunc is one synchronization pass. It reports progress through the run
// and returns the first uncaught error, which the scheduler treats as a
// retryable failure of the whole attempt.
type JobFunc func(ctx context.Context, run *Run) error

// Scheduler owns run execution: bounded linear-backoff retry, single-flight
// deduplication per job name, cancellation and observation.
type Scheduler struct {
	job         JobFunc
	maxAttempts int
	retryDelay  time.Duration
	onFailure   func(run *Run)
	logger      *zap.Logger

	mu     sync.Mutex
	active map[string]*Run // queued or executing, keyed by job name
	runs   map[string]*Run // every known run, keyed by run id

	flight singleflight.Group
}

// NewScheduler creates a scheduler driving job. onFailure, if non-nil, is
// invoked once when a run exhausts its attempts.
func NewScheduler(job JobFunc, maxAttempts int, retryDelay time.Duration, onFailure func(run *Run), log *zap.Logger) *Scheduler {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Scheduler{
		job:         job,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		onFailure:   onFailure,
		logger:      log,
		active:      make(map[string]*Run),
		runs:        make(map[string]*Run),
	}
}

// Enqueue starts the named job unless one is already queued or running, in
// which case the existing run is returned untouched (keep-existing policy).
func (s *Scheduler) Enqueue(jobName string, opts Options) *Run {
	s.mu.Lock()
	if existing, ok := s.active[jobName]; ok {
		s.mu.Unlock()
		return existing
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &Run{
		ID:      uuid.NewString(),
		Job:     jobName,
		Options: opts,
		state:   StateInitializing,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.active[jobName] = run
	s.runs[run.ID] = run
	s.pruneLocked()
	s.mu.Unlock()

	go func() {
		// The singleflight group guards the execution window per job name;
		// even if bookkeeping and goroutine start interleave across callers,
		// at most one body executes for a given name at a time.
		s.flight.Do(jobName, func() (any, error) {
			s.execute(ctx, run)
			return nil, nil
		})

		s.mu.Lock()
		if s.active[jobName] == run {
			delete(s.active, jobName)
		}
		s.mu.Unlock()
		close(run.done)
	}()

	return run
}

// execute drives one run through its attempts. Cancellation is not a failure:
// it does not count against maxAttempts and is never retried automatically.
func (s *Scheduler) execute(ctx context.Context, run *Run) {
	l := logger.WithRunID(s.logger, run.ID)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		run.beginAttempt(attempt)

		err := s.job(ctx, run)
		if err == nil {
			run.SetState(StateCompleted)
			l.Info("Sync run completed", zap.Int("attempt", attempt))
			return
		}

		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			run.SetState(StateCancelled)
			l.Info("Sync run cancelled")
			return
		}

		if attempt == s.maxAttempts {
			kind := classify(err)
			run.failPermanently(kind, err.Error())
			l.Error("Sync run failed permanently",
				zap.Int("attempts", attempt),
				zap.String("kind", kind),
				zap.Error(err),
			)
			if s.onFailure != nil {
				s.onFailure(run)
			}
			return
		}

		l.Warn("Sync attempt failed, will retry",
			zap.Int("attempt", attempt),
			zap.Duration("delay", s.retryDelay),
			zap.Error(err),
		)
		run.SetState(StateRetryWait)

		// Fixed delay between attempts, not exponential.
		select {
		case <-time.After(s.retryDelay):
		case <-ctx.Done():
			run.SetState(StateCancelled)
			l.Info("Sync run cancelled while waiting to retry")
			return
		}
	}
}

// Get returns the run with the given id.
func (s *Scheduler) Get(runID string) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	return run, ok
}

// Cancel requests cancellation of the run with the given id. It reports
// whether the run was found; an already-terminal run is left untouched.
func (s *Scheduler) Cancel(runID string) bool {
	s.mu.Lock()
	run, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	run.cancel()
	return true
}

// StartPeriodic schedules the periodic job every interval until ctx is done.
// Completion and permanent failure both reschedule the next natural interval.
func (s *Scheduler) StartPeriodic(ctx context.Context, interval time.Duration, opts Options) {
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				run := s.Enqueue(JobPeriodic, opts)
				select {
				case <-run.Done():
				case <-ctx.Done():
					return
				}
				timer.Reset(interval)
			}
		}
	}()
}

// pruneLocked trims terminal runs so the observation map does not grow
// unbounded. Callers hold s.mu.
func (s *Scheduler) pruneLocked() {
	const keep = 50
	if len(s.runs) <= keep {
		return
	}
	for id, run := range s.runs {
		if len(s.runs) <= keep {
			return
		}
		if run.Snapshot().State.Terminal() {
			delete(s.runs, id)
		}
	}
}
