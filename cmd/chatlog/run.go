package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata" // day boundaries need Asia/Tokyo on hosts without zoneinfo

	"github.com/tinytelemetry/chatlog/internal/backup"
	"github.com/tinytelemetry/chatlog/internal/duckdb"
	"github.com/tinytelemetry/chatlog/internal/httpserver"
	"github.com/tinytelemetry/chatlog/internal/hub"
	"github.com/tinytelemetry/chatlog/internal/model"
	"github.com/tinytelemetry/chatlog/internal/monitor"
	"github.com/tinytelemetry/chatlog/internal/tailer"
	"github.com/tinytelemetry/chatlog/internal/tui"
	"github.com/tinytelemetry/chatlog/internal/watcher"
	"golang.org/x/sync/errgroup"
)

// run starts the monitor with its optional archive and API. When headless
// is false the dashboard owns the terminal until the user quits.
func run(cfg appConfig, headless bool) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	loc, err := cfg.location()
	if err != nil {
		return err
	}
	channels, err := cfg.channels()
	if err != nil {
		return err
	}

	events := hub.New()
	defer events.Close()
	opts := []monitor.Option{monitor.WithPublisher(events)}

	var store *duckdb.Store
	if cfg.ArchiveEnabled {
		store, err = duckdb.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize DuckDB: %w", err)
		}
		defer store.Close()
		log.Printf("archive: schema v%d", store.SchemaVersion())

		insertBuffer := duckdb.NewInsertBuffer(store, duckdb.InsertBufferConfig{
			BatchSize:     cfg.InsertBatchSize,
			FlushInterval: cfg.InsertFlushInterval,
			Location:      loc,
		})
		defer insertBuffer.Stop()
		opts = append(opts, monitor.WithSink(insertBuffer))

		retentionCleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
			RetentionDays: cfg.RetentionDays,
		})
		if retentionCleaner != nil {
			defer retentionCleaner.Stop()
		}

		backupManager, err := backup.NewManager(store, backup.Config{
			Enabled:  cfg.BackupDir != "",
			Interval: cfg.BackupInterval,
			Dir:      cfg.BackupDir,
			KeepLast: cfg.BackupKeep,
			Location: loc,
			Buffer:   insertBuffer,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize backups: %w", err)
		}
		if backupManager != nil {
			defer backupManager.Stop()
		}
	}

	mon, err := monitor.New(monitor.Config{
		Tailer: tailer.Config{
			Dir:         cfg.LogDir,
			Prefix:      cfg.LogPrefix,
			Ext:         cfg.LogExt,
			Location:    loc,
			HeaderLines: cfg.HeaderLines,
		},
		ViewLimit:   cfg.ViewLimit,
		RateWindow:  cfg.RateWindow,
		RatePattern: cfg.RatePattern,
	}, model.SystemClock{}, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize monitor: %w", err)
	}
	defer mon.Close()

	if cfg.APIEnabled {
		serverOpts := []httpserver.Option{httpserver.WithEvents(events)}
		if store != nil {
			serverOpts = append(serverOpts, httpserver.WithArchive(store))
		}
		apiServer := httpserver.NewServer(cfg.APIAddr, mon, serverOpts...)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nForce shutdown.")
		case <-deadline.C:
			fmt.Fprintln(os.Stderr, "Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	g, gctx := errgroup.WithContext(ctx)

	var wake <-chan struct{}
	if cfg.Watch {
		w, err := watcher.New(cfg.LogDir, watcher.Pattern(cfg.LogPrefix, cfg.LogExt))
		if err != nil {
			log.Printf("watcher: disabled, polling only: %v", err)
		} else {
			wake = w.Wake()
			g.Go(func() error { return w.Start(gctx) })
		}
	}

	g.Go(func() error {
		return mon.Run(gctx, cfg.PollInterval, wake)
	})

	if headless {
		printStartupBanner(cfg, mon.Path())
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	} else {
		g.Go(func() error {
			defer cancel()
			return tui.Run(gctx, mon, tui.Options{
				Channels:       channels,
				ShowTime:       cfg.ShowTime,
				Vertical:       cfg.Vertical,
				UpdateInterval: cfg.UpdateInterval,
				Path:           mon.Path,
			})
		})
	}

	err = g.Wait()
	cancel()
	signal.Stop(sigCh)
	if err != nil {
		return fmt.Errorf("chatlog: %w", err)
	}
	return nil
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "chatlog")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "chatlog.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}
