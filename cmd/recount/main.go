package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"petii/config"
	"petii/db"
	"petii/services"
	"syscall"
	"time"
)

// recount - разовый пересчет likeCount/likerSample по леджеру лайков.
// With -post only that post is recounted, otherwise every post is swept.
func main() {
	var configPath string
	var postID int64
	var batchSize int
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Int64Var(&postID, "post", 0, "Recount a single post id")
	flag.IntVar(&batchSize, "batch", 0, "Posts per batch (defaults to reconcile.batch_size)")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	config.SetupLogger(os.Stderr, config.AppConfig.Logs.Level)
	if batchSize <= 0 {
		batchSize = config.AppConfig.Reconcile.BatchSize
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}
	defer db.Close()

	reconciler := services.NewReconciler(nil)
	start := time.Now()
	if postID > 0 {
		changed, err := reconciler.Recount(ctx, postID)
		if err != nil {
			slog.Error("recount failed", "post_id", postID, "error", err)
			os.Exit(1)
		}
		slog.Info("recount finished", "post_id", postID, "changed", changed, "took", time.Since(start))
		return
	}

	fixed, err := reconciler.Sweep(ctx, batchSize)
	if err != nil {
		slog.Error("sweep failed", "fixed", fixed, "error", err)
		os.Exit(1)
	}
	slog.Info("sweep finished", "fixed", fixed, "took", time.Since(start))
}
