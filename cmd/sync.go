package cmd

import (
	"fmt"
	"time"

	"membersync/core/catalog"
	"membersync/core/config"
	"membersync/core/localdb"
	"membersync/core/logger"
	"membersync/feature/sync"
	"membersync/feature/sync/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncCustomers bool
	syncOrders    bool
	syncEvents    bool
	syncPayments  bool
	syncLedger    bool
	syncSocios    bool
	ignoreCache   bool
)

// syncCmd runs one manual synchronization pass and waits for it to finish.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one manual synchronization pass",
	Long: `Run the reconciliation engine once against both remotes and wait for
the outcome.

Examples:
  # Full sync
  membersync sync

  # Only the ledger, bypassing the event cache
  membersync sync --customers=false --orders=false --events=false --payments=false --ignore-cache`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncCustomers, "customers", true, "Synchronize catalog customers")
	syncCmd.Flags().BoolVar(&syncOrders, "orders", true, "Synchronize catalog orders")
	syncCmd.Flags().BoolVar(&syncEvents, "events", true, "Synchronize catalog events")
	syncCmd.Flags().BoolVar(&syncPayments, "payments", true, "Synchronize available payment packages")
	syncCmd.Flags().BoolVar(&syncLedger, "ledger", true, "Synchronize ledger transactions")
	syncCmd.Flags().BoolVar(&syncSocios, "socios", true, "Mirror the socio directory (admin accounts)")
	syncCmd.Flags().BoolVar(&ignoreCache, "ignore-cache", false, "Bypass the event freshness cache")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	db, err := localdb.Connect(cfg.LocalDB)
	if err != nil {
		return fmt.Errorf("failed to open local database: %w", err)
	}

	client, err := catalog.NewClient(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	notify := func(owner models.Socio, tx models.LedgerTransaction) {
		l.Info("New ledger transaction",
			zap.Int64("owner", owner.IDSocio),
			zap.String("concept", tx.Concept),
			zap.Float64("price", tx.Price),
		)
	}

	service := sync.NewService(db, client, sync.NewLedgerSource(cfg.Ledger), notify, nil, cfg.Engine, cfg.Catalog.PageSize(), l)
	if err := service.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate local database: %w", err)
	}

	opts := sync.Options{
		SyncCustomers: syncCustomers,
		SyncOrders:    syncOrders,
		SyncEvents:    syncEvents,
		SyncPayments:  syncPayments,
		SyncLedger:    syncLedger,
		SyncSocios:    syncSocios,
		IgnoreCache:   ignoreCache,
	}

	l.Info("Starting manual sync")
	started := time.Now()

	run := service.RunManual(opts)
	<-run.Done()

	snap := run.Snapshot()
	l.Info("Manual sync finished",
		zap.String("run_id", snap.ID),
		zap.String("outcome", snap.String()),
		zap.Duration("duration", time.Since(started)),
	)

	if snap.State != sync.StateCompleted {
		return fmt.Errorf("sync did not complete: %s", snap.String())
	}
	return nil
}
