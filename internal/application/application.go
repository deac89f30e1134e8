package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sim-ashish/chat-service/internal/authz"
	"github.com/sim-ashish/chat-service/internal/config"
	"github.com/sim-ashish/chat-service/internal/database"
	"github.com/sim-ashish/chat-service/internal/handler"
	"github.com/sim-ashish/chat-service/internal/notify"
	"github.com/sim-ashish/chat-service/internal/router"
	"github.com/sim-ashish/chat-service/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API is the HTTP + WebSocket chat application.
type API struct {
	cfg    *config.Config
	srv    *http.Server
	db     *gorm.DB
	rdb    *redis.Client
	hub    *service.RoomHub
	bridge *notify.Bridge
	logger *zap.Logger
}

// NewAPI creates the API application: validates config, runs migrations,
// opens DB and Redis, builds the hub, bridge and router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)

	hub := service.NewRoomHub(cfg.WSMaxMessageSize, logger)
	history := service.NewHistoryService(db, cfg.HistoryLimit)
	authClient := authz.NewClient(cfg.AuthServiceURL, logger)
	bridge := notify.NewBridge(rdb, history, hub, logger)

	chatWS := handler.NewChatWSHandler(hub, history, authClient, logger)
	messages := handler.NewMessageHandler(history, cfg.HistoryLimit, logger)
	health := handler.NewHealthHandler()

	r := router.New(messages, chatWS, health)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, db: db, rdb: rdb, hub: hub, bridge: bridge, logger: logger}, nil
}

// Run starts the HTTP server and the notification bridge and blocks until
// ctx is cancelled; then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	defer a.logger.Sync()

	addr := a.srv.Addr
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", addr)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  Messages:      %s/messages", base)
	log.Printf("  WebSocket:     ws://%s:%s/ws/group/:group_id", host, a.cfg.HTTPPort)

	// Supervised background subscriber; exits when ctx is cancelled.
	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		a.bridge.Run(ctx)
	}()

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	// Bridge unsubscribes on ctx cancel; release the bus connection after.
	select {
	case <-bridgeDone:
	case <-shutdownCtx.Done():
	}
	if err := a.rdb.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
	return nil
}
