package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/classdesk/internal/backup"
	"github.com/dukerupert/classdesk/internal/config"
	"github.com/dukerupert/classdesk/internal/database"
	"github.com/dukerupert/classdesk/internal/logging"
	"github.com/dukerupert/classdesk/internal/push"
	"github.com/dukerupert/classdesk/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	genVAPID := flag.Bool("gen-vapid", false, "print a new VAPID key pair and exit")
	restoreKey := flag.String("restore", "", "object key of a backup to restore, then exit")
	restoreTo := flag.String("restore-to", "classdesk-restored.db", "file the -restore snapshot is written to")
	flag.Parse()

	if *genVAPID {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("%s_VAPID_PUBLIC_KEY=%s\n%s_VAPID_PRIVATE_KEY=%s\n", config.EnvPrefix, pub, config.EnvPrefix, priv)
		return
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if *restoreKey != "" {
		if err := restore(cfg, logger, *restoreKey, *restoreTo); err != nil {
			logger.Error("restore failed", "key", *restoreKey, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("classdesk stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, server.Options{
		Location:       cfg.Location,
		RetryMax:       cfg.RetryMax,
		RetryBaseDelay: cfg.RetryBaseDelay,
		NotifyInterval: cfg.NotifyInterval,
		CookieSecure:   cfg.CookieSecure,
		AllowedOrigins: cfg.AllowedOrigins,
		Push: push.Config{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.VAPIDSubscriber,
		},
		Backup:         cfg.Backup,
		BackupInterval: cfg.BackupInterval,
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("classdesk listening",
			"addr", httpServer.Addr,
			"db", cfg.DBPath,
			"timezone", cfg.Location.String(),
			"push", cfg.PushEnabled(),
			"backup", cfg.Backup.Enabled(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		srv.Shutdown(shutdownCtx)
		return err
	})
	return g.Wait()
}

// restore writes a decrypted snapshot next to the live database. Swapping it
// in is left to the operator while the server is stopped.
func restore(cfg *config.Config, logger *slog.Logger, key, dst string) error {
	if !cfg.Backup.Enabled() {
		return errors.New("backup storage is not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	m := backup.NewManager(cfg.Backup, nil, backup.NewS3Client(cfg.Backup), logger.With("component", "backup"))
	if err := m.Restore(ctx, key, dst); err != nil {
		return err
	}
	logger.Info("backup restored", "key", key, "path", dst)
	return nil
}
