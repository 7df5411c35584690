package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitwise74/seed-swap/app"
	"bitwise74/seed-swap/aws"
	"bitwise74/seed-swap/cloudflare"
	"bitwise74/seed-swap/config"
	"bitwise74/seed-swap/db"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/service"
	"bitwise74/seed-swap/internal/session"
	"bitwise74/seed-swap/internal/storage"
	"bitwise74/seed-swap/pkg/middleware"
	"bitwise74/seed-swap/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

func main() {
	cfg, err := config.Setup(os.Args[1:])
	if err != nil {
		panic(err)
	}

	makeLogger(cfg)
	defer zap.L().Sync()

	if err := run(cfg); err != nil {
		zap.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg.DB)
	if err != nil {
		return err
	}

	if cfg.MigrateOnly {
		zap.L().Info("Migrations done")
		return nil
	}

	d, cleanup, err := newDeps(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := app.NewRouter(ctx, d)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Host.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zap.L().Info("Server starting", zap.Int("port", cfg.Host.Port), zap.String("env", cfg.App.Env))

		if cfg.Host.SSL.Enabled {
			errc <- srv.ListenAndServeTLS(cfg.Host.SSL.CertificatePath, cfg.Host.SSL.CertificateKeyPath)
			return
		}

		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// newDeps builds every service from the config. The returned func releases
// what was opened.
func newDeps(ctx context.Context, cfg *config.Config, database *gorm.DB) (*internal.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := newSessionStore(ctx, cfg, database)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeStore)

	secure := cfg.IsProduction() || cfg.Host.SSL.Enabled

	var mailer service.Mailer
	if cfg.Mail.Enabled {
		mailer = service.NewSMTPMailer(cfg.Mail, cfg.Host.Domain, secure)
	}

	return &internal.Deps{
		Config:   cfg,
		DB:       database,
		Auth:     service.NewAuthService(database, security.New(), images, mailer),
		Seeds:    service.NewSeedService(database, images),
		Images:   images,
		Sessions: session.NewManager(store, cfg.Session.CookieName, cfg.Session.MaxAge, secure),
		Flashes:  middleware.NewFlashes([]byte(cfg.Session.Secret), secure),
	}, cleanup, nil
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "s3":
		c, err := aws.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}

		return storage.NewS3Store(c.C, c.Bucket, cfg.S3.PublicURL, cfg.Upload.MaxSize, false), nil
	case "r2":
		c, err := cloudflare.NewR2(ctx, cfg.Cloudflare)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize R2 client, %w", err)
		}

		return storage.NewS3Store(c.C, c.Bucket, cfg.Cloudflare.PublicURL, cfg.Upload.MaxSize, cfg.Cloudflare.ImageResizing), nil
	default:
		return storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicPath, cfg.Upload.MaxSize)
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config, database *gorm.DB) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "redis":
		c := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := c.Ping(ctx).Err(); err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis, %w", err)
		}

		return session.NewRedisStore(c), func() { c.Close() }, nil
	case "memory":
		s := session.NewMemoryStore()
		return s, func() { s.Close() }, nil
	default:
		s := session.NewDBStore(database)
		go s.Cleanup(ctx, time.Hour)
		return s, func() {}, nil
	}
}

func makeLogger(cfg *config.Config) {
	var zc zap.Config

	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(gray + t.Format("15:04:05.000") + reset)
		}
		zc.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(gray + ec.TrimmedPath() + reset)
		}
	}

	if lvl, err := zapcore.ParseLevel(cfg.App.LogLevel); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}

	zc.DisableStacktrace = true

	log, _ := zc.Build()
	zap.ReplaceGlobals(log)
}
