package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"membersync/core/catalog"
	"membersync/core/config"
	"membersync/feature/sync/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FailureFunc receives the structured error of a permanently failed run.
// Like NotifyFunc it is fire-and-forget; the default implementation logs.
type FailureFunc func(runID string, failure RunError)

// Service is the composition root of the sync engine. It owns the stores,
// the remote sources and the scheduler; everything else consumes its results
// through the local mirror.
type Service struct {
	db        *gorm.DB
	fetcher   *catalogFetcher
	ledger    LedgerSource
	accounts  *AccountStore
	notifier  *Notifier
	scheduler *Scheduler
	logger    *zap.Logger

	onFailure FailureFunc

	// firstRun is decided once per engine lifetime: whether the local ledger
	// was completely empty before the first run began.
	firstRunOnce stdsync.Once
	firstRun     bool
}

// NewService wires the engine. notify may be nil (notifications muted);
// onFailure may be nil (permanent failures only logged).
func NewService(db *gorm.DB, client catalog.Client, ledgerSrc LedgerSource, notify NotifyFunc, onFailure FailureFunc, engineCfg config.Engine, perPage int, log *zap.Logger) *Service {
	s := &Service{
		db:        db,
		fetcher:   newCatalogFetcher(client, perPage),
		ledger:    ledgerSrc,
		accounts:  NewAccountStore(db),
		notifier:  NewNotifier(notify, log),
		logger:    log,
		onFailure: onFailure,
	}

	retryDelay := time.Duration(engineCfg.RetryDelaySeconds) * time.Second
	if retryDelay <= 0 {
		retryDelay = 30 * time.Second
	}
	s.scheduler = NewScheduler(s.runJob, engineCfg.MaxAttempts, retryDelay, s.reportPermanentFailure, log)
	return s
}

// AutoMigrate creates or updates the local mirror tables.
func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Account{},
		&models.Customer{},
		&models.Order{},
		&models.Event{},
		&models.AvailablePayment{},
		&models.Socio{},
		&models.LedgerTransaction{},
	)
}

// Accounts exposes the account store for registration surfaces (CLI, tests).
func (s *Service) Accounts() *AccountStore { return s.accounts }

// RegisterAccount persists a login so subsequent runs include it.
func (s *Service) RegisterAccount(ctx context.Context, dni, token string) error {
	return s.accounts.Save(ctx, &models.Account{
		DNI:       dni,
		Kind:      models.AccountKindPrimary,
		AuthToken: token,
	})
}

// RunManual enqueues a manual run. Enqueuing while a manual run is already
// queued or running returns the existing run (keep-existing policy).
func (s *Service) RunManual(opts Options) *Run {
	return s.scheduler.Enqueue(JobManual, opts)
}

// SchedulePeriodic starts the periodic job loop until ctx is done.
func (s *Service) SchedulePeriodic(ctx context.Context, interval time.Duration) {
	s.scheduler.StartPeriodic(ctx, interval, DefaultOptions())
}

// Observe returns a snapshot of the run with the given id.
func (s *Service) Observe(runID string) (RunSnapshot, bool) {
	run, ok := s.scheduler.Get(runID)
	if !ok {
		return RunSnapshot{}, false
	}
	return run.Snapshot(), true
}

// Cancel requests cancellation of the run with the given id.
func (s *Service) Cancel(runID string) bool {
	return s.scheduler.Cancel(runID)
}

// runJob is one synchronization pass: entity groups per account, then ledger,
// then the associated-owner second pass.
func (s *Service) runJob(ctx context.Context, run *Run) error {
	s.firstRunOnce.Do(func() {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.LedgerTransaction{}).Count(&count).Error; err == nil {
			s.firstRun = count == 0
		}
	})

	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		return err
	}

	run.SetState(StateSyncingEntities)
	for i := range accounts {
		acct := &accounts[i]
		if acct.AuthToken == "" {
			// Local, non-retryable decision: clear the credential and move on.
			if err := s.accounts.ClearCredential(ctx, acct.DNI); err != nil {
				return err
			}
			s.logger.Info("Skipping account without credential", zap.String("account", acct.DNI))
			continue
		}
		if err := s.syncAccountEntities(ctx, run, acct); err != nil {
			return err
		}
	}

	if run.Options.SyncLedger {
		run.SetState(StateSyncingLedger)
		for i := range accounts {
			acct := &accounts[i]
			if acct.AuthToken == "" {
				continue
			}
			if err := s.syncAccountLedger(ctx, run, acct); err != nil {
				return err
			}
		}

		run.SetState(StateReconcilingAssociated)
		s.syncAssociatedOwners(ctx, run, accounts)
	}

	return ctx.Err()
}

func (s *Service) reportPermanentFailure(run *Run) {
	snap := run.Snapshot()
	failure := RunError{Kind: FailureInternal, Message: "unknown"}
	if snap.Error != nil {
		failure = *snap.Error
	}
	if s.onFailure != nil {
		s.onFailure(run.ID, failure)
		return
	}
	s.logger.Error("Sync failed permanently",
		zap.String("run_id", run.ID),
		zap.String("kind", failure.Kind),
		zap.String("message", failure.Message),
	)
}

// String renders a short human summary for CLI output.
func (s RunSnapshot) String() string {
	if s.Error != nil {
		return fmt.Sprintf("%s (%s: %s)", s.State, s.Error.Kind, s.Error.Message)
	}
	if s.Step != "" && s.Max > 0 {
		return fmt.Sprintf("%s [%s %d/%d]", s.State, s.Step, s.Current, s.Max)
	}
	return string(s.State)
}
