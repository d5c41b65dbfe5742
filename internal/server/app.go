// Package server wires the authkeeper components together and runs the HTTP
// and gRPC front ends until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/session"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

// Runner is a front end that serves until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	rdb     redis.UniversalClient
	boot    *services.Bootstrapper
	runners []Runner
}

// NewApp connects to storage, applies migrations and builds every service.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	rm := repomanager.NewPostgresRepositoryManager()

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	refreshStore, err := app.refreshTokenStore(ctx, rm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	codec, err := auth.NewCodec([]byte(c.SecretKey), c.AccessTokenTTL, auth.WithIssuer(c.Issuer))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("access token codec: %w", err)
	}

	userStore := rm.UserStore(db)
	refresh := services.NewRefreshTokenManager(refreshStore, userStore.Repository(), c.RefreshTokenTTL, logger)
	pairs := services.NewTokenPairManager(refresh, codec, logger)

	authService, err := services.NewAuthService(userStore, password.NewHasher(0), pairs, refresh, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.boot = services.NewBootstrapper(userStore, authService, c.RootUser, c.RootPassword, logger)
	app.runners = []Runner{
		httpapi.NewServer(c.HTTPAddr, logger, authService, codec, session.CookieOptions{
			Secure: c.CookieSecure,
			MaxAge: c.RefreshTokenTTL,
		}),
		gs.NewGRPCServer(c.GRPCAddr, logger, authService, codec),
	}

	return app, nil
}

// refreshTokenStore picks the backend named by the configuration.
func (app *App) refreshTokenStore(ctx context.Context, rm repomanager.RepositoryManager) (refreshtokens.Store, error) {
	switch app.config.StoreBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     app.config.RedisAddr,
			Password: app.config.RedisPassword,
			DB:       app.config.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.rdb = rdb
		return refreshtokens.NewRedisStore(rdb, ""), nil
	default:
		return rm.RefreshTokenStore(app.db), nil
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Close releases storage connections.
func (app *App) Close() {
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Warn(context.Background(), "error closing redis", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(context.Background(), "error closing database", "error", err)
		}
	}
}

// Run bootstraps roles and the root account, then serves until a signal
// arrives, ctx is cancelled or one of the front ends fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.boot.Run(ctx); err != nil {
		return fmt.Errorf("bootstrap error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for _, r := range app.runners {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}(r)
	}

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return nil
}
