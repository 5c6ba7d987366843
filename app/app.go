// Package app wires the shared runtime of the scraper commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brequin/catalog/config"
	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/harvest"
	"github.com/brequin/catalog/logger"
	"github.com/brequin/catalog/metrics"
	"github.com/brequin/catalog/notify"
)

// App is one command invocation: its settings, logger, metrics and the
// clients it talks to. DB is nil unless the command asked for it.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Notifier Reporter
	Banner   *harvest.Banner
	DB       *db.Database
	RunID    string

	command string
	started time.Time
	redis   *redis.Client
	base    *zap.Logger
}

// Reporter delivers a run report. *notify.Notifier is the production one.
type Reporter interface {
	Send(notify.Report) error
}

type Options struct {
	Command  string
	Database bool
}

func Start(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	base, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	a := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		RunID:   uuid.NewString(),
		command: opts.Command,
		started: time.Now(),
		base:    base,
	}
	a.Log = logger.WithRun(base, opts.Command, a.RunID)

	notifier, err := notify.New(cfg.Discord)
	if err != nil {
		a.Close()
		return nil, err
	}
	if notifier != nil {
		a.Notifier = notifier
	}

	pool, err := harvest.NewPool(cfg.Harvest.Proxies, cfg.Harvest.BackoffBase, cfg.Harvest.BackoffMax)
	if err != nil {
		a.Close()
		return nil, err
	}

	var cache harvest.PageCache
	if cfg.Redis.Enabled {
		a.redis, err = harvest.NewRedis(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		cache = harvest.NewRedisCache(a.redis, cfg.Redis.PageTTL)
	}

	client := harvest.NewClient(pool, cache, cfg.Harvest, a.Log, a.Metrics)
	a.Banner = harvest.NewBanner(client, cfg.BannerURL)

	if opts.Database {
		a.DB, err = db.Connect(ctx, cfg.Database.ConnectionString, int(cfg.Database.MaxConns))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		if err := a.DB.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Log.Info("run started", zap.Int("dispatchers", pool.Size()), zap.Bool("page_cache", cache != nil))
	return a, nil
}

// Finish pushes metrics and posts the run report. Failures here are logged
// and never override the run's own result.
func (a *App) Finish(report notify.Report) {
	report.RunID = a.RunID
	report.Command = a.command
	report.Duration = time.Since(a.started)

	if err := a.Metrics.Push(a.Config.Metrics.PushgatewayURL, a.Config.Metrics.Job); err != nil {
		a.Log.Warn("metrics push failed", zap.Error(err))
	}
	if a.Notifier != nil {
		if err := a.Notifier.Send(report); err != nil {
			a.Log.Warn("run report not delivered", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.String("term", report.Term),
		zap.Int("scraped", report.Scraped),
		zap.Int("updated", report.Updated),
		zap.Int("deleted", report.Deleted),
		zap.Int("failures", report.Failures),
		zap.Duration("duration", report.Duration),
	}
	if report.Err != nil {
		a.Log.Error("run failed", append(fields, zap.Error(report.Err))...)
		return
	}
	a.Log.Info("run finished", fields...)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			a.Log.Warn("closing redis", zap.Error(err))
		}
	}
	_ = a.base.Sync()
}
