package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/snipdex/internal/config"
	"github.com/kailas-cloud/snipdex/internal/db"
	"github.com/kailas-cloud/snipdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/snipdex/internal/db/redis"
	"github.com/kailas-cloud/snipdex/internal/db/sqlite"
	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/metrics"
	"github.com/kailas-cloud/snipdex/internal/repository/embcache"
	snippetrepo "github.com/kailas-cloud/snipdex/internal/repository/snippet"
	"github.com/kailas-cloud/snipdex/internal/transport/hashing"
	openaiEmb "github.com/kailas-cloud/snipdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/snipdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/snipdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/snipdex/internal/usecase/search"
	snippetuc "github.com/kailas-cloud/snipdex/internal/usecase/snippet"
)

// app is the composition root shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	areas  map[string]db.Area

	embedder *embeddinguc.Client
	cache    *embcache.Cache
	snippets *snippetuc.Service
	search   *searchuc.Controller
	health   *healthuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	a := &app{cfg: cfg, logger: logger, areas: make(map[string]db.Area)}
	if err := a.openAreas(ctx); err != nil {
		a.Close()
		return nil, err
	}

	domains := make([]item.Domain, 0, len(cfg.Storage.Domains))
	itemAreas := make(map[item.Domain]snippetrepo.Area, len(cfg.Storage.Domains))
	for _, name := range cfg.Storage.Domains {
		d, err := item.ParseDomain(name)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("storage.domains: %w", err)
		}
		domains = append(domains, d)
		itemAreas[d] = a.areas[name]
	}
	store, err := snippetrepo.NewStore(domains, itemAreas, logger.Named("store"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create snippet store: %w", err)
	}

	a.embedder = embeddinguc.NewClient(embeddinguc.ClientConfig{
		Runtime:             buildRuntime(cfg.Embedding, logger),
		RuntimeName:         cfg.Embedding.Provider,
		Model:               cfg.Embedding.Model,
		Dimensions:          cfg.Embedding.Dimensions,
		DocumentInstruction: cfg.Embedding.DocumentInstruction,
		QueryInstruction:    cfg.Embedding.QueryInstruction,
		Logger:              logger.Named("embedding"),
	})
	a.cache = embcache.New(a.areas[config.CacheArea], a.embedder, cfg.Embedding.Dimensions, logger.Named("embcache"))
	a.snippets = snippetuc.New(store, a.cache, logger.Named("snippets"))
	a.search = searchuc.NewController(store, a.cache, a.embedder, logger.Named("search"))

	pingers := make(map[string]healthuc.Pinger, len(a.areas))
	for name, area := range a.areas {
		pingers[name] = area
	}
	a.health = healthuc.New(pingers, a.embedder)

	if err := a.snippets.Open(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("open snippets: %w", err)
	}
	return a, nil
}

func (a *app) openAreas(ctx context.Context) error {
	// Areas sharing a sqlite file share one handle; it closes with the last area.
	handles := make(map[string]*sqlite.DB)

	timeout := time.Duration(a.cfg.Storage.ReadinessTimeout) * time.Second
	for _, name := range a.cfg.AreaNames() {
		ac := a.cfg.Storage.Areas[name]

		var area db.Area
		switch ac.Driver {
		case config.DriverMemory:
			area = memory.New()
		case config.DriverSQLite:
			h, ok := handles[ac.Path]
			if !ok {
				if err := os.MkdirAll(filepath.Dir(ac.Path), 0o750); err != nil {
					return fmt.Errorf("create data dir for %s: %w", name, err)
				}
				opened, err := sqlite.Open(ctx, ac.Path)
				if err != nil {
					return fmt.Errorf("open area %s: %w", name, err)
				}
				handles[ac.Path] = opened
				h = opened
			}
			area = h.Area(name)
		case config.DriverRedis:
			s, err := dbRedis.NewStore(dbRedis.Config{
				Addrs:     ac.Addrs,
				Password:  ac.Password,
				DB:        ac.DB,
				Namespace: "snipdex:" + name,
			})
			if err != nil {
				return fmt.Errorf("open area %s: %w", name, err)
			}
			area = s
		default:
			return fmt.Errorf("area %s: unknown driver %q", name, ac.Driver)
		}
		if ac.QuotaBytesPerItem > 0 {
			area = db.NewQuotaArea(area, ac.QuotaBytesPerItem)
		}
		a.areas[name] = area

		if err := db.WaitForReady(ctx, area, timeout); err != nil {
			return fmt.Errorf("area %s not ready: %w", name, err)
		}
		a.logger.Debug("Storage area ready", zap.String("area", name), zap.String("driver", ac.Driver))
	}
	return nil
}

// buildRuntime picks the embedding runtime. Transport metrics are built into each runtime.
func buildRuntime(cfg config.EmbeddingConfig, logger *zap.Logger) embeddinguc.Runtime {
	if cfg.Provider == config.ProviderOpenAI {
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Runtime:    cfg.Provider,
			Logger:     logger.Named("openai"),
		})
	}
	return hashing.NewEmbedder(cfg.Dimensions)
}

// Close releases every storage area.
func (a *app) Close() {
	for _, area := range a.areas {
		area.Close()
	}
}
