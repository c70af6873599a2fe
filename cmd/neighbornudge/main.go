package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/neighbornudge/neighbornudge/internal/backup"
	"github.com/neighbornudge/neighbornudge/internal/config"
	"github.com/neighbornudge/neighbornudge/internal/database"
	"github.com/neighbornudge/neighbornudge/internal/logging"
	"github.com/neighbornudge/neighbornudge/internal/model"
	"github.com/neighbornudge/neighbornudge/internal/reddit"
	"github.com/neighbornudge/neighbornudge/internal/server"
	"github.com/neighbornudge/neighbornudge/internal/store"
	"github.com/neighbornudge/neighbornudge/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create data directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redditSvc := reddit.NewService(reddit.Config{
		Subreddit: cfg.Subreddit,
		Limit:     cfg.RedditLimit,
	}, logger.With("component", "reddit"))

	srv := server.New(db, redditSvc, server.Config{
		RateLimit:       cfg.RateLimit,
		RateLimitWindow: cfg.RateLimitWindow,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backupMgr := backup.NewManager(backup.Config{
		Bucket:     cfg.BackupBucket,
		Endpoint:   cfg.BackupEndpoint,
		Region:     cfg.BackupRegion,
		AccessKey:  cfg.BackupAccessKey,
		SecretKey:  cfg.BackupSecretKey,
		Passphrase: cfg.BackupPassphrase,
		DBPath:     cfg.DBPath,
		Interval:   cfg.BackupInterval,
		Keep:       cfg.BackupKeep,
	}, db, store.NewBackupStore(db), func(b *model.Backup) {
		srv.Hub().Broadcast(websocket.NewMessage(websocket.EntityBackup, websocket.ActionCompleted, "", map[string]any{
			"object_key": b.ObjectKey,
			"size_bytes": b.SizeBytes,
		}))
	}, logger.With("component", "backup"))
	go backupMgr.Run(ctx)

	// Periodic sweep of stale rate limiter windows
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("neighbornudge listening", "addr", cfg.Addr(), "subreddit", cfg.Subreddit)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
