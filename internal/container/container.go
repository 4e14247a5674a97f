package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anime-shed/table-inspector-go/internal/analyzer"
	"github.com/anime-shed/table-inspector-go/internal/config"
	"github.com/anime-shed/table-inspector-go/internal/factory"
	"github.com/anime-shed/table-inspector-go/internal/logger"
	"github.com/anime-shed/table-inspector-go/internal/observer"
	"github.com/anime-shed/table-inspector-go/internal/repository"
	"github.com/anime-shed/table-inspector-go/internal/service"
	"github.com/anime-shed/table-inspector-go/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container holds all application dependencies
type Container struct {
	config       *config.Config
	registry     *prometheus.Registry
	publisher    *observer.EventPublisher
	analyzer     analyzer.TableAnalyzer
	repository   repository.AnalysisRepository
	tableService service.TableAnalysisService
	handler      http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	f := factory.NewComponentFactory(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	promObserver, err := observer.NewPrometheusObserver(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)
	publisher.Subscribe(promObserver)

	tableAnalyzer, err := f.CreateAnalyzer()
	if err != nil {
		return nil, err
	}
	sources, err := f.CreateSourceRouter()
	if err != nil {
		return nil, err
	}
	exporters, err := f.CreateExporters()
	if err != nil {
		return nil, err
	}
	repo, err := f.CreateRepository(ctx)
	if err != nil {
		return nil, err
	}

	tableService := service.NewTableAnalysisService(tableAnalyzer, sources, repo, publisher, service.Options{
		Settings:         cfg.VisionSettings(),
		SupportedFormats: cfg.SupportedFormatList(),
		AllowedHosts:     cfg.AllowedImageHostList(),
		BatchMaxItems:    cfg.BatchMaxItems,
	}, exporters...)

	handler := transport.NewHandler(tableService, cfg, registry, metrics)

	return &Container{
		config:       cfg,
		registry:     registry,
		publisher:    publisher,
		analyzer:     tableAnalyzer,
		repository:   repo,
		tableService: tableService,
		handler:      handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the table analysis service
func (c *Container) Service() service.TableAnalysisService {
	return c.tableService
}

// Close drains the batch pool, waits for pending events and releases the history store
func (c *Container) Close() error {
	c.tableService.Close()
	c.publisher.Flush()
	return c.repository.Close()
}
