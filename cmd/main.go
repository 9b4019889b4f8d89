package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafe-system/internal/config"
	"cafe-system/internal/database"
	"cafe-system/internal/logger"
	"cafe-system/internal/messaging"
	"cafe-system/internal/server"
	"cafe-system/internal/services/booking"
	"cafe-system/internal/services/notification"
	"cafe-system/internal/services/order"
	"cafe-system/internal/services/tables"
	"cafe-system/internal/timerange"
)

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (cafe-service, notification-subscriber)")
		configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
		port       = flag.Int("port", 0, "HTTP port, overrides server.port")
		migrations = flag.String("migrations", "migrations", "Directory with SQL migrations")
		prefetch   = flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode": *mode,
		"port": cfg.Server.Port,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch *mode {
	case "cafe-service":
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
			cancel()
		}()

		if err := runCafeService(ctx, cfg, log, *migrations); err != nil {
			log.Error("service_failed", "Cafe service failed", requestID, err, nil)
			os.Exit(1)
		}
	case "notification-subscriber":
		// the subscriber handles its own shutdown signals
		if err := runNotificationSubscriber(ctx, cfg, log, *prefetch); err != nil {
			log.Error("service_failed", "Notification subscriber failed", requestID, err, nil)
			os.Exit(1)
		}
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runCafeService restores the engines from PostgreSQL, serves HTTP and
// snapshots state back periodically and on shutdown
func runCafeService(ctx context.Context, cfg *config.Config, log *logger.Logger, migrationsDir string) error {
	requestID := logger.GenerateRequestID()
	clock := timerange.SystemClock{}

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, os.DirFS(migrationsDir)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	notifier := notification.Multi{
		notification.NewLogNotifier(log),
		notification.NewBrokerNotifier(messaging.NewPublisher(conn, log), log),
	}

	inventory := cfg.Inventory()
	if inventory == nil {
		inventory = tables.DefaultInventory()
	}
	registry, err := tables.NewRegistry(inventory, clock, log)
	if err != nil {
		return fmt.Errorf("failed to build table registry: %w", err)
	}
	bookings := booking.NewService(registry, notifier, clock, log)
	orders := order.NewService(notifier, clock, log)

	store := database.NewStore(db, log)
	if err := restore(ctx, store, registry, bookings, orders); err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}

	snapshot := func(ctx context.Context) error {
		bookingSnap, tableSnap := bookings.Snapshot()
		return store.Save(ctx, database.Snapshot{
			Tables:   tableSnap,
			Bookings: bookingSnap,
			Orders:   orders.All(),
		})
	}

	api := server.New(server.Deps{
		Bookings:               bookings,
		Tables:                 registry,
		Orders:                 orders,
		Health:                 db.Ping,
		Clock:                  clock,
		Logger:                 log,
		DefaultDurationMinutes: cfg.Booking.DefaultDurationMinutes,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("service_started", fmt.Sprintf("Cafe Service started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"port":   cfg.Server.Port,
			"tables": len(inventory),
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	ticker := time.NewTicker(cfg.Server.SnapshotInterval)
	defer ticker.Stop()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-serveErr:
			runErr = fmt.Errorf("HTTP server failed: %w", err)
			break loop
		case <-ticker.C:
			if err := snapshot(ctx); err != nil {
				log.Error("snapshot_failed", "Failed to save periodic snapshot", requestID, err, nil)
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", "HTTP server shutdown failed", requestID, err, nil)
	}
	if err := snapshot(shutdownCtx); err != nil {
		log.Error("snapshot_failed", "Failed to save final snapshot", requestID, err, nil)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// restore loads the last snapshot into empty engines
func restore(ctx context.Context, store *database.Store, registry *tables.Registry, bookings *booking.Service, orders *order.Service) error {
	snap, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if snap.Empty() {
		return nil
	}
	if err := registry.Restore(snap.Tables); err != nil {
		return err
	}
	if err := bookings.Restore(snap.Bookings); err != nil {
		return err
	}
	return orders.Restore(snap.Orders)
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	consumer := messaging.NewConsumer(conn, log, messaging.NotificationsQueue, "notification-subscriber", prefetch)
	return notification.NewSubscriber(consumer, log).Start(ctx)
}
