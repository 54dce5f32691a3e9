package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"membersync/core/config"
	"membersync/core/localdb"
	"membersync/core/logger"
	"membersync/core/middleware/auth"
	"membersync/core/middleware/rayid"

	"membersync/core/catalog"
	"membersync/core/loader"
	"membersync/feature/sync"
	"membersync/feature/sync/models"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the membersync server",
	Long:  `Starts the HTTP server and the periodic synchronization schedule.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Open the local mirror
		db, err := localdb.Connect(cfg.LocalDB)
		if err != nil {
			logg.Fatal("Failed to open local database", zap.Error(err))
		}

		// 4. Remote sources
		client, err := catalog.NewClient(cfg.Catalog)
		if err != nil {
			logg.Fatal("Failed to create catalog client", zap.Error(err))
		}
		ledgerSrc := sync.NewLedgerSource(cfg.Ledger)

		// 5. Assemble the engine. Notification delivery is a collaborator
		// outside this binary; the server logs announcements.
		notify := func(owner models.Socio, tx models.LedgerTransaction) {
			logg.Info("New ledger transaction",
				zap.Int64("owner", owner.IDSocio),
				zap.String("concept", tx.Concept),
				zap.Float64("price", tx.Price),
			)
		}
		service := sync.NewService(db, client, ledgerSrc, notify, nil, cfg.Engine, cfg.Catalog.PageSize(), logg)
		if err := service.AutoMigrate(); err != nil {
			logg.Fatal("Failed to migrate local database", zap.Error(err))
		}

		// 6. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// Middleware Registration
		// RayID must come first to trace everything.
		app.Use(rayid.New())
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			return c.Next()
		})
		app.Use(auth.New(cfg.Server.ApiKey))

		// 7. Register features
		mgr := loader.NewManager()
		mgr.Register(sync.NewFeature(service))

		loaded, err := mgr.LoadAll(app)
		if err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}
		logg.Info("Features loaded", zap.Strings("features", loaded))

		// 8. Periodic schedule
		ctx, stop := context.WithCancel(context.Background())
		defer stop()
		interval := time.Duration(cfg.Engine.IntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = time.Hour
		}
		service.SchedulePeriodic(ctx, interval)
		logg.Info("Periodic sync scheduled", zap.Duration("interval", interval))

		// 9. Start server with graceful shutdown
		go func() {
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server stopped", zap.Error(err))
			}
		}()
		logg.Info("Server started", zap.String("port", cfg.Server.Port))

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logg.Info("Shutting down")
		stop()
		if err := app.Shutdown(); err != nil {
			logg.Error("Shutdown failed", zap.Error(err))
		}
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
