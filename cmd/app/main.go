package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rps_challenge/internal/bot"
	"rps_challenge/internal/config"
	"rps_challenge/internal/db"
	"rps_challenge/internal/game"
	httpServer "rps_challenge/internal/http"
	"rps_challenge/internal/http/handlers"
	"rps_challenge/internal/logger"
	"rps_challenge/internal/progression"
	"rps_challenge/internal/ratelimit"
	"rps_challenge/internal/repository"
	"rps_challenge/internal/scheduler"
	"rps_challenge/internal/service"
	"rps_challenge/internal/ws"

	"github.com/gin-gonic/gin"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()
	gateway := repository.NewGateway(dbPool)

	rdb := ratelimit.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
	}
	limiter := ratelimit.New(rdb, cfg.ActionRateLimit, time.Duration(cfg.ActionRateWindow)*time.Second)

	sched, err := scheduler.New()
	if err != nil {
		logger.Fatal("failed to start scheduler", "error", err)
	}

	hub := ws.NewHub()
	notifiers := game.Notifiers{hub}

	var tgBot *bot.Bot
	if cfg.BotEnabled {
		tgBot, err = bot.NewBot(cfg.BotToken, nil, gateway, limiter)
		if err != nil {
			logger.Fatal("failed to start telegram bot", "error", err)
		}
		notifiers = append(notifiers, tgBot)
	}

	engine := game.NewEngine(gateway, progression.NewEvaluator(gateway), sched,
		game.WithNotifier(notifiers),
		game.WithChallengeTTL(cfg.ChallengeTTL),
		game.WithRetiredTTL(cfg.RetiredTTL),
	)
	if err := sched.Every(time.Minute, "sweep", engine.Sweep); err != nil {
		logger.Fatal("failed to schedule sweep", "error", err)
	}

	if tgBot != nil {
		tgBot.SetEngine(engine)
		go tgBot.Start()
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	health := handlers.NewHealthHandler(dbPool, version)
	if rdb != nil {
		health.AddCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler:       handlers.NewHandler(engine, gateway, service.NewAuthService(cfg.BotToken, gateway)),
		Health:        health,
		Hub:           hub,
		Matches:       engine,
		Limiter:       limiter,
		AllowedOrigin: cfg.AllowedOrigin,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if tgBot != nil {
		tgBot.Stop()
	}
	if err := sched.Shutdown(); err != nil {
		logger.Error("scheduler shutdown failed", "error", err)
	}

	logger.Info("server exited")
}
