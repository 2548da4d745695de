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
	"petii/api/handlers"
	"petii/api/middleware"
	"petii/api/routes"
	"petii/config"
	"petii/db"
	"petii/services"
	"petii/storage"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	conf := config.AppConfig
	config.SetupLogger(os.Stdout, conf.Logs.Level)
	if conf.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	slog.Info("Starting server...", "env", conf.App.Env, "port", conf.App.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}
	defer db.Close()

	// Redis не обязателен: без него очередь пересчета и rate limit работают в процессе
	if err := services.InitRedis(ctx); err != nil {
		slog.Warn("Redis unavailable, using in-process fallbacks", "error", err)
	}
	defer services.CloseRedis()

	bucket, err := storage.New(ctx, conf)
	if err != nil {
		panic("Failed to init storage: " + err.Error())
	}
	media := services.NewMediaService(bucket, conf.Storage.MaxMediaBytes, conf.Storage.MaxImageBytes)

	reconciler := services.NewReconciler(services.RedisClient)
	recounts := services.NewRecountQueueService(services.RedisClient, reconciler)
	recounts.StartWorkers(ctx, conf.Reconcile.Workers)
	reconciler.StartSweeper(ctx, conf.Reconcile.SweepInterval, conf.Reconcile.BatchSize)

	var relay services.ChatRelay = services.NewDirectRelay(services.GlobalWSConnManager)
	if conf.RabbitMQ.URL != "" {
		rabbit, err := services.InitRabbitMQ(conf.RabbitMQ.URL, services.GlobalWSConnManager)
		if err != nil {
			slog.Warn("RabbitMQ unavailable, relaying chat locally", "error", err)
		} else {
			defer rabbit.Close()
			if err := rabbit.StartConsumer(ctx); err != nil {
				panic("Failed to start chat consumer: " + err.Error())
			}
			relay = rabbit
		}
	}

	tokens := services.NewTokenIssuer(conf.Auth.JWTSecret, conf.Auth.TokenTTL)
	handlers.Init(handlers.Services{
		Users:   services.NewUserService(media, tokens),
		Follows: services.NewFollowService(),
		Posts:   services.NewPostService(media),
		Feed:    services.NewFeedService(),
		Likes:   services.NewLikeService(recounts),
		Chat:    services.NewChatService(relay, media),
		Media:   media,
		Sockets: services.GlobalWSConnManager,
	})

	limiter, err := middleware.NewRateLimiter(services.RedisClient, conf.RateLimit.Requests, conf.RateLimit.Window)
	if err != nil {
		panic("Failed to init rate limiter: " + err.Error())
	}
	uploadsDir := ""
	if conf.Storage.Driver == "local" {
		uploadsDir = conf.Storage.LocalDir
	}

	router, err := routes.NewRouter(routes.Options{
		ServiceName:    "petii",
		Tokens:         tokens,
		Limiter:        limiter,
		AllowedOrigins: conf.CORS.AllowedOrigins,
		UploadsDir:     uploadsDir,
	})
	if err != nil {
		panic(err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.App.Host, conf.App.Port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
