package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"orderetl/internal/app"
	"orderetl/internal/config"
	"orderetl/internal/handler"
	"orderetl/internal/middleware"
	"orderetl/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	app.SetupLogger(cfg)

	secret, err := cfg.JWTKey()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	auth := middleware.NewAuth(secret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	a, err := app.New(cfg, wsHub)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Initialize Handlers
	pipelineHandler := handler.NewPipelineHandler(a.Pipeline, auth)
	kpiHandler := handler.NewKPIHandler(a.KPIs, auth)
	runLogHandler := handler.NewRunLogHandler(a.RunLogs, auth)

	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	router.GET("/ws", wsHub.Handler(auth))

	pipelineHandler.RegisterRoutes(router.Group(""))
	kpiHandler.RegisterRoutes(router.Group(""))
	runLogHandler.RegisterRoutes(router.Group(""))

	slog.Info("server listening", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
