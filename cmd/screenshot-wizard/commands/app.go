package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/Grabemic/Screenshot-wizard/internal/config"
	"github.com/Grabemic/Screenshot-wizard/internal/ledger"
	"github.com/Grabemic/Screenshot-wizard/internal/llm"
	"github.com/Grabemic/Screenshot-wizard/internal/metrics"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
	"github.com/Grabemic/Screenshot-wizard/internal/pdf"
	"github.com/Grabemic/Screenshot-wizard/internal/pipeline"
	"github.com/Grabemic/Screenshot-wizard/internal/render"
)

// app is the wired processing stack shared by watch, process and batch.
type app struct {
	cfg     *config.Config
	log     *observability.Logger
	coord   *pipeline.Coordinator
	metrics *metrics.Collector
	store   *ledger.Store
	server  *metrics.Server
}

func newLogger(cfg *config.Config) *observability.Logger {
	level := cfg.Observability.LogLevel
	if verbose {
		level = "debug"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: cfg.Observability.LogFormat,
	})
}

// newApp validates the API key, creates the folders and wires the pipeline.
// History and the metrics endpoint are optional and only warn on failure.
func newApp(cfg *config.Config, log *observability.Logger, opts ...pipeline.Option) (*app, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureFolders(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	client := llm.NewClient(llm.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.OpenAI.Model,
		BaseURL:   cfg.OpenAI.BaseURL,
		MaxTokens: cfg.OpenAI.MaxTokens,
		Timeout:   cfg.OpenAI.Timeout,
	}, log)
	converter := pdf.NewConverter(cfg.Processing.RenderDPI, log)
	writer := render.NewWriter(render.Config{
		PageSize:   cfg.PDF.PageSize,
		FontFamily: cfg.PDF.FontFamily,
		FontSize:   cfg.PDF.FontSize,
		Margin:     cfg.PDF.Margin,
	}, log)

	opts = append(opts, pipeline.WithMetrics(a.metrics))
	if path := cfg.LedgerPath(); path != "" {
		store, err := ledger.Open(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("history disabled")
		} else {
			a.store = store
			opts = append(opts, pipeline.WithHistory(store))
		}
	}

	a.coord = pipeline.New(pipeline.Config{
		OutputDir:     cfg.OutputDir(),
		ArchiveDir:    cfg.ArchiveDir(),
		MaxCategories: cfg.Processing.MaxCategories,
	}, client, converter, writer, log, opts...)

	if addr := cfg.Metrics.Addr; addr != "" {
		srv := metrics.NewServer(addr, a.metrics, log)
		if _, err := srv.Start(); err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("metrics endpoint disabled")
		} else {
			a.server = srv
		}
	}
	return a, nil
}

// Close stops the metrics endpoint and closes the history store.
func (a *app) Close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.Warn().Err(err).Msg("metrics shutdown")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close history")
		}
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
