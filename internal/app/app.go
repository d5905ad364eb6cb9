// Package app assembles the client object graph from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/grocery-keeper/internal/config"
	"github.com/and161185/grocery-keeper/internal/limiter"
	"github.com/and161185/grocery-keeper/internal/migrate"
	"github.com/and161185/grocery-keeper/internal/repository/remote"
	"github.com/and161185/grocery-keeper/internal/service"
	"github.com/and161185/grocery-keeper/internal/session"
	"github.com/and161185/grocery-keeper/internal/storage/filestore"
	"github.com/and161185/grocery-keeper/internal/storage/postgres"
	"github.com/and161185/grocery-keeper/internal/storage/redisstore"
	"github.com/and161185/grocery-keeper/internal/transport"
)

// App is the wired client.
type App struct {
	Auth     service.AuthService
	Products service.ProductService
	Session  *session.Store
}

// Deps are the pieces Open picks from configuration.
type Deps struct {
	Backend    session.Backend
	Limiter    limiter.Limiter
	HTTPClient *http.Client
}

// Open connects the configured store backend and wires the client.
// Postgres migrations run before the store is used.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	deps := Deps{}
	switch cfg.Store {
	case config.StorePostgres:
		ver, err := migrate.Up(ctx, cfg.PostgresDSN, log)
		if err != nil {
			return nil, err
		}
		log.Debug("schema ready", zap.Int64("version", ver))
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		deps.Backend = postgres.NewStore(db)
		deps.Limiter = limiter.NewPG(db.Pool, cfg.LoginPolicy())
	case config.StoreRedis:
		rs, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		deps.Backend = rs
		deps.Limiter = limiter.NewDurable(rs, cfg.LoginPolicy())
	default:
		dir := cfg.DataDir
		if dir == "" {
			var err error
			if dir, err = filestore.DefaultDir(); err != nil {
				return nil, err
			}
		}
		var opts []filestore.Option
		if cfg.SealPass != "" {
			opts = append(opts, filestore.WithPassphrase(cfg.SealPass))
		}
		fs, err := filestore.Open(dir, cfg.SealToken, opts...)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		deps.Backend = fs
		deps.Limiter = limiter.NewDurable(fs, cfg.LoginPolicy())
	}
	return New(cfg, deps, log), nil
}

// New wires services over explicit dependencies.
func New(cfg *config.Config, deps Deps, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	sess := session.FromBackend(deps.Backend, log.Named("session"))
	opts := []transport.Option{transport.WithTokens(sess), transport.WithLogger(log.Named("http"))}
	if deps.HTTPClient != nil {
		opts = append(opts, transport.WithHTTPClient(deps.HTTPClient))
	}
	client := transport.New(cfg.APIURL, cfg.Timeout, opts...)

	return &App{
		Auth:     service.NewAuthService(remote.NewAuth(client, sess, log.Named("auth")), deps.Limiter, log),
		Products: service.NewProductService(remote.NewProducts(client, log.Named("products"))),
		Session:  sess,
	}
}

// Close releases the store backend.
func (a *App) Close() error { return a.Session.Close() }
