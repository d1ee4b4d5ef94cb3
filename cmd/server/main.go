package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mmuslimabdulj/pairchat/internal/auth"
	"github.com/mmuslimabdulj/pairchat/internal/config"
	httpHandler "github.com/mmuslimabdulj/pairchat/internal/delivery/http"
	"github.com/mmuslimabdulj/pairchat/internal/delivery/ws"
	"github.com/mmuslimabdulj/pairchat/internal/domain"
	"github.com/mmuslimabdulj/pairchat/internal/logger"
	"github.com/mmuslimabdulj/pairchat/internal/middleware"
	"github.com/mmuslimabdulj/pairchat/internal/presence"
	"github.com/mmuslimabdulj/pairchat/internal/store/memstore"
	"github.com/mmuslimabdulj/pairchat/internal/store/mongostore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile, port, logLevel string

	flagSet := pflag.NewFlagSet("pairchat", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.StringVar(&port, "port", "", "listen port (overrides PORT)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn, error or silent (overrides LOG_LEVEL)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load(envFile)

	// Reload config after loading .env
	config.AppConfig = config.LoadFromEnv()
	cfg := config.AppConfig
	if port != "" {
		cfg.Port = port
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, messages, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens := auth.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
	hub := ws.NewHub()

	var mirror *presence.RedisMirror
	if cfg.RedisAddr != "" {
		mirror, err = presence.NewRedisMirror(ctx, presence.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.PresenceTTL,
		})
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer mirror.Close()
		hub.SetPresenceObserver(mirror, mirror.RefreshInterval())
		logger.Info("presence mirror enabled", zap.String("addr", cfg.RedisAddr))
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// Initialize dependencies
	relay := ws.NewRelay(hub, messages, cfg.PersistTimeout)
	gateway := ws.NewGateway(hub, relay, tokens, ws.Settings{
		TokenCookie:       cfg.TokenCookie,
		HeartbeatInterval: cfg.HeartbeatInterval,
		PongTimeout:       cfg.PongTimeout,
		VerifyTimeout:     cfg.VerifyTimeout,
		MaxMessageSize:    int64(cfg.MaxMessageSize),
	})
	handler := httpHandler.NewHandler(cfg, users, messages, tokens, gateway)
	if mirror != nil {
		handler.SetPresence(mirror)
	} else {
		handler.SetPresence(hub)
	}

	limiters := middleware.NewLimiters(cfg.RateLimitAPI, cfg.RateLimitWS)

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /test", handler.HandleTest)

	// Auth routes with strict rate limiting
	mux.HandleFunc("POST /register", middleware.RateLimitFunc(limiters.Strict, handler.HandleRegister))
	mux.HandleFunc("POST /login", middleware.RateLimitFunc(limiters.Strict, handler.HandleLogin))
	mux.HandleFunc("POST /logout", middleware.RateLimitFunc(limiters.API, handler.HandleLogout))

	// API routes with rate limiting
	mux.HandleFunc("GET /profile", middleware.RateLimitFunc(limiters.API, handler.HandleProfile))
	mux.HandleFunc("GET /people", middleware.RateLimitFunc(limiters.API, handler.HandlePeople))
	mux.HandleFunc("GET /messages/{userId}", middleware.RateLimitFunc(limiters.API, handler.HandleMessages))

	// WebSocket route with rate limiting
	mux.Handle("GET /ws", middleware.RateLimitMiddleware(limiters.WebSocket)(http.HandlerFunc(handler.HandleWebSocket)))

	// Apply CORS and security headers to all requests
	securedHandler := middleware.SecurityHeaders(middleware.CORS(cfg.IsOriginAllowed, mux))

	// Create server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      securedHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("pairchat listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return errors.Wrap(err, "serve")
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	stopHub()

	logger.Info("server exited gracefully")
	return nil
}

// openStores connects MongoDB when MONGO_URI is set and falls back to
// process memory otherwise.
func openStores(ctx context.Context, cfg *config.Config) (domain.UserStore, domain.MessageStore, func(), error) {
	if cfg.MongoURI == "" {
		logger.Warn("MONGO_URI not set, messages are kept in memory only")
		return memstore.NewUserStore(), memstore.NewMessageStore(), func() {}, nil
	}

	client, err := mongostore.Connect(ctx, mongostore.Config{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: cfg.MongoMaxPool,
	})
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "connect mongo")
	}

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(ctx); err != nil {
			logger.Warn("mongo close failed", zap.Error(err))
		}
	}
	return client.Users(), client.Messages(), closeFn, nil
}
