package main

import (
	"bitwise74/campus-finder/api"
	"bitwise74/campus-finder/config"
	"bitwise74/campus-finder/db"
	"bitwise74/campus-finder/service"
	"bitwise74/campus-finder/storage"
	"bitwise74/campus-finder/store"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrMissingSecret) {
			fmt.Fprintf(os.Stderr, "jwt.secret is not set. Put this one in config.toml or JWT_SECRET:\n\n%s\n", config.GenerateSecret())
			os.Exit(1)
		}

		panic(err)
	}

	if err := api.MakeLogger(cfg.App); err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	if cfg.App.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to open database", zap.Error(err))
	}
	defer s.Close(context.Background())

	deps := api.Deps{
		Config: cfg,
		Store:  s,
		Mailer: service.NewMailer(cfg.Mail),
	}

	if cfg.Redis.Addr != "" {
		rdb, err := db.NewRedis(ctx, cfg.Redis)
		if err != nil {
			zap.L().Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		deps.Attempts = service.NewRedisAttemptLimiter(rdb, cfg.Security.OTPMaxAttempts, cfg.Security.OTPWindow)
	} else {
		zap.L().Warn("redis.addr is not set, verification attempts are not limited")
	}

	if cfg.Storage.Enabled {
		bucket, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			zap.L().Fatal("Failed to initialize object storage", zap.Error(err))
		}

		deps.Objects = bucket
	}

	a, err := api.NewRouter(deps)
	if err != nil {
		zap.L().Fatal("Failed to build router", zap.Error(err))
	}

	service.ResetCleanup(ctx, cfg.Cleanup.Interval, s)
	a.Limiter.Cleanup(ctx, time.Minute)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Host.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr), zap.Bool("tls", cfg.Host.SSL.Enabled))

		var err error
		if cfg.Host.SSL.Enabled {
			err = srv.ListenAndServeTLS(cfg.Host.SSL.CertificatePath, cfg.Host.SSL.CertificateKeyPath)
		} else {
			err = srv.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.Driver == "mongo" {
		client, database, err := db.NewMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}

		s := store.NewMongoStore(client, database)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, err
		}

		return s, nil
	}

	conn, err := db.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(conn); err != nil {
		return nil, err
	}

	return store.NewGormStore(conn), nil
}
