package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"support-desk/internal/config"
	"support-desk/internal/db"
	apihttp "support-desk/internal/http"
	"support-desk/internal/idgen"
	"support-desk/internal/logging"
	"support-desk/internal/repository"
	"support-desk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type repositories struct {
	users    repository.UserRepository
	messages repository.MessageRepository
	sessions service.SessionStore
	close    func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.SessionSecret == config.DefaultSessionSecret {
		logger.Warn("session secret not configured, using the development default")
	}

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open repositories", zap.Error(err))
	}
	defer repos.close()

	ids := idgen.New()
	for name, maxID := range map[string]func(context.Context) (int64, error){
		"users":    repos.users.MaxID,
		"messages": repos.messages.MaxID,
	} {
		id, err := maxID(ctx)
		if err != nil {
			logger.Fatal("seed id generator", zap.String("collection", name), zap.Error(err))
		}
		ids.Observe(id)
	}

	var (
		sessionStore service.SessionStore
		loginLimiter service.LoginRateLimiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, falling back to local sessions", zap.Error(err))
		} else {
			sessionStore = service.NewRedisSessionStore(redisClient)
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, cfg.LoginRateWindow, cfg.LoginRateMax)
		}
		cancel()
	}
	if sessionStore == nil {
		sessionStore = repos.sessions
	}
	if sessionStore == nil {
		sessionStore = service.NewMemorySessionStore()
	}
	if loginLimiter == nil {
		loginLimiter = service.NewLoginRateLimiter(cfg.LoginRateWindow, cfg.LoginRateMax)
	}

	sessionSvc := service.NewSessionService(logger, sessionStore, cfg.SessionSecret, cfg.SessionTTL)
	go sessionSvc.Run(ctx, cfg.SessionSweepInterval)

	adminMode := cfg.AdminKey != ""
	if !adminMode {
		logger.Warn("ADMIN_KEY not set: message listing and replies are open to unauthenticated callers")
	}

	userSvc := service.NewUserService(logger, repos.users, ids, cfg.BcryptCost, loginLimiter)
	messageSvc := service.NewMessageService(repos.messages, ids, adminMode)

	gin.SetMode(gin.ReleaseMode)
	userHandler := apihttp.NewUserHandler(logger, userSvc, sessionSvc, apihttp.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.CookieSecure,
	})
	messageHandler := apihttp.NewMessageHandler(logger, messageSvc)
	router := apihttp.NewRouter(logger, apihttp.RouterOptions{
		Sessions:   sessionSvc,
		CookieName: cfg.CookieName,
		AdminKey:   cfg.AdminKey,
		StaticDir:  cfg.StaticDir,

		TrustedProxies: cfg.TrustedProxies,
	}, userHandler, messageHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("store_backend", cfg.StoreBackend),
			zap.Bool("admin_mode", adminMode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return repositories{}, err
		}
		if err := db.Ping(ctx, pool); err != nil {
			pool.Close()
			return repositories{}, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return repositories{}, err
		}
		logger.Info("using postgres store")
		return repositories{
			users:    repository.NewPgUserRepository(pool),
			messages: repository.NewPgMessageRepository(pool),
			sessions: repository.NewPgSessionRepository(pool),
			close:    pool.Close,
		}, nil
	default:
		users, err := repository.NewFileUserRepository(filepath.Join(cfg.DataDir, "users.json"))
		if err != nil {
			return repositories{}, err
		}
		messages, err := repository.NewFileMessageRepository(filepath.Join(cfg.DataDir, "messages.json"))
		if err != nil {
			return repositories{}, err
		}
		logger.Info("using file store", zap.String("data_dir", cfg.DataDir))
		return repositories{
			users:    users,
			messages: messages,
			close:    func() {},
		}, nil
	}
}
