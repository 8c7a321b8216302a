// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator provides the core HTTP service for NestReady.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the analysis pipeline, the advisor loop, the
// shared cache, and observability infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12310}
//	svc, err := orchestrator.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Run()
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nestready/nestready/pkg/cache"
	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/advisor/chatcontext"
	"github.com/nestready/nestready/services/advisor/guardrails"
	"github.com/nestready/nestready/services/advisor/loop"
	"github.com/nestready/nestready/services/advisor/pipeline"
	"github.com/nestready/nestready/services/advisor/tools"
	"github.com/nestready/nestready/services/finmath"
	"github.com/nestready/nestready/services/llm"
	"github.com/nestready/nestready/services/marketdata"
	"github.com/nestready/nestready/services/orchestrator/middleware"
	"github.com/nestready/nestready/services/orchestrator/observability"
	"github.com/nestready/nestready/services/orchestrator/routes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the orchestrator service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds orchestrator configuration options.
//
// All fields are optional; New() applies defaults for zero values.
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// LLMBackend specifies the model provider.
	// Valid values: "local", "openai", "anthropic". Default: "local"
	LLMBackend string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Empty disables tracing export.
	OTelEndpoint string

	// EnableMetrics enables the Prometheus /metrics endpoint.
	// Default: true
	EnableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string

	// CacheSize is the entry capacity of the shared TTL cache holding
	// market data, tool results, and sessions. Default: 4096
	CacheSize int

	// RateLimitRPS is the sustained per-client request rate on /v1.
	// Default: 5. Negative disables rate limiting.
	RateLimitRPS float64

	// SynthesisTimeout bounds the summary model call. Default: 15s
	SynthesisTimeout time.Duration
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "local"
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 4096
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 5
	}
	cfg.EnableMetrics = true
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Description
//
// service coordinates:
//   - HTTP routing via Gin with OTel instrumentation
//   - the model client for the configured backend
//   - market data fetching with the shared TTL cache
//   - the analysis pipeline and the advisor loop
//   - Prometheus metrics
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	logger        *logging.Logger
	router        *gin.Engine
	llmClient     llm.LLMClient
	sharedCache   *cache.TTLCache
	pipeline      *pipeline.Pipeline
	advisor       *loop.Advisor
	sessions      *loop.SessionStore
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new orchestrator Service with the given configuration.
//
// # Description
//
// New initializes all components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing (when an endpoint is configured)
//  3. Initializes Prometheus metrics
//  4. Creates the model client for the configured backend
//  5. Wires the market data service, calculator, tools, guardrails,
//     pipeline, and advisor over one shared TTL cache
//  6. Sets up HTTP routes
//
// # Outputs
//
//   - Service: Ready-to-run orchestrator service
//   - error: Non-nil if initialization fails
//
// # Assumptions
//
//   - Environment variables are set for the chosen model provider
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
		logger: logging.Default().With("service", "orchestrator"),
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if s.config.EnableMetrics && observability.DefaultMetrics == nil {
		observability.InitMetrics()
		s.logger.Info("initialized Prometheus metrics")
	}

	var err error
	s.llmClient, err = llm.NewClient(s.config.LLMBackend)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize model client: %w", err)
	}
	s.logger.Info("model client ready", "backend", s.config.LLMBackend)

	if err := s.initAdvisor(); err != nil {
		s.cleanup()
		return nil, err
	}

	s.initRouter()
	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info("starting orchestrator server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Limitations
//
//   - Uses an insecure gRPC connection (appropriate for internal networks)
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("nestready-orchestrator")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initAdvisor wires the domain stack over the shared cache.
func (s *service) initAdvisor() error {
	s.sharedCache = cache.New(s.config.CacheSize)

	provider := marketdata.NewHTTPProvider(s.sharedCache)
	market := marketdata.NewService(provider, s.logger)
	calc := finmath.NewStandardCalculator()

	registry, err := tools.New(calc, provider)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	executor := tools.NewExecutor(registry, guardrails.NewParamValidator(), s.sharedCache, s.logger)

	p, err := pipeline.New(pipeline.Config{
		Market:           market,
		Calculator:       calc,
		LLM:              s.llmClient,
		Logger:           s.logger,
		SynthesisTimeout: s.config.SynthesisTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	s.pipeline = p

	advisor, err := loop.New(loop.Config{
		Model:    s.llmClient,
		Executor: executor,
		InputGuard: guardrails.NewInputGuard(guardrails.InputGuardConfig{
			Classifier: s.llmClient,
			Logger:     s.logger,
		}),
		Summarizer: chatcontext.NewSummarizer(s.llmClient, s.logger),
		Logger:     s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build advisor: %w", err)
	}
	s.advisor = advisor
	s.sessions = loop.NewSessionStore(s.sharedCache)

	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("nestready-orchestrator"))

	var limiter *middleware.RateLimiter
	if s.config.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: s.config.RateLimitRPS,
		})
	}

	routes.SetupRoutes(s.router, routes.Deps{
		Pipeline: s.pipeline,
		Advisor:  s.advisor,
		Sessions: s.sessions,
		Limiter:  limiter,
		Logger:   s.logger,
	})
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
