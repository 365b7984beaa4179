// Package app wires the harness binary with fx.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hsn0918/docindex/internal/config"
	"github.com/hsn0918/docindex/internal/engine"
	"github.com/hsn0918/docindex/pkg/chunking"
	anthropicclient "github.com/hsn0918/docindex/pkg/clients/anthropic"
	openaiclient "github.com/hsn0918/docindex/pkg/clients/openai"
	"github.com/hsn0918/docindex/pkg/enrich"
	"github.com/hsn0918/docindex/pkg/logger"
	"github.com/hsn0918/docindex/pkg/metadata"
)

// Module assembles the harness dependency graph.
var Module = fx.Options(
	fx.Provide(
		NewConfig,
		NewLogger,
		NewProvider,
		NewEngine,
	),
	fx.Invoke(Run),
)

// NewConfig loads the harness configuration from the working directory.
func NewConfig() (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// NewLogger initializes the shared zap logger.
func NewLogger() (*zap.Logger, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger.Get(), nil
}

// NewProvider selects the context provider for enrichment. A disabled
// enrichment section yields no provider.
func NewProvider(cfg *config.Config) (enrich.ContextProvider, error) {
	if !cfg.Enrichment.Enabled {
		return nil, nil
	}
	switch cfg.Enrichment.Provider {
	case config.ProviderAnthropic:
		return anthropicclient.NewClient(cfg.Enrichment.APIKey)
	case config.ProviderOpenAI:
		return openaiclient.NewClient(openaiclient.Config{
			BaseURL: cfg.Enrichment.BaseURL,
			APIKey:  cfg.Enrichment.APIKey,
		})
	default:
		return enrich.NewMockProvider(), nil
	}
}

// NewEngine constructs the processing engine.
func NewEngine(cfg *config.Config, provider enrich.ContextProvider) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithFileSystem(metadata.OSFileSystem{}),
	}
	if provider != nil {
		opts = append(opts, engine.WithProvider(provider))
	}
	return engine.New(engine.Config{
		Chunking:   cfg.Chunking,
		Enrichment: cfg.Enrichment.Config,
	}, opts...)
}

// Run indexes every matching document under the input directory, then
// optionally enriches the collected chunks and prints batch metrics.
func Run(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, eng *engine.Engine, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				err := run(context.Background(), cfg, eng, log)
				if err != nil {
					log.Error("run failed", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			eng.Close()
			logger.Sync()
			return nil
		},
	})
}

func run(ctx context.Context, cfg *config.Config, eng *engine.Engine, log *zap.Logger) error {
	paths, err := collectInputs(cfg)
	if err != nil {
		return err
	}
	log.Info("indexing documents",
		zap.String("dir", cfg.Input.Dir),
		zap.Int("files", len(paths)))

	var allChunks []chunking.DocumentChunk
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			continue
		}
		res, err := eng.ProcessDocument(engine.Document{
			Path:    path,
			Content: data,
			Context: cfg.Input.Context,
		})
		if err != nil {
			log.Warn("processing failed", zap.String("path", path), zap.Error(err))
			continue
		}
		log.Info("document indexed",
			zap.String("path", path),
			zap.Int("sections", len(res.Structure.Sections)),
			zap.Int("chunks", len(res.Chunks)))
		allChunks = append(allChunks, res.Chunks...)
	}

	if !cfg.Enrichment.Enabled || len(allChunks) == 0 {
		return nil
	}

	bar := progressbar.Default(int64(len(allChunks)), "enriching")
	contexts, metrics, err := eng.Enrich(ctx, allChunks, cfg.Input.Context, func(processed, total int) {
		_ = bar.Set(processed)
	})
	if err != nil {
		return fmt.Errorf("enrichment: %w", err)
	}

	log.Info("enrichment complete",
		zap.Int("contexts", len(contexts)),
		zap.Int("processed", metrics.ProcessedChunks),
		zap.Int("cached", metrics.CachedChunks),
		zap.Int("tokens_in", metrics.TotalTokensInput),
		zap.Int("tokens_out", metrics.TotalTokensOutput),
		zap.Float64("cost_usd", metrics.TotalCost),
		zap.Duration("elapsed", metrics.ProcessingTime),
		zap.Int("errors", len(metrics.Errors)))
	return nil
}

// collectInputs gathers input files matching the configured globs.
func collectInputs(cfg *config.Config) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(cfg.Input.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, glob := range cfg.Input.Globs {
			if ok, _ := filepath.Match(glob, filepath.Base(path)); ok {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input dir: %w", err)
	}
	return paths, nil
}
