// Package specwire binds an AsyncAPI-style specification to runtime
// behavior: every inbound and outbound event is validated against its
// declared schema, connection bindings are enforced, and in mock mode
// the server emits schema-conformant fake payloads on a periodic
// schedule.
package specwire

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/specwire/specwire-go/events"
	"github.com/specwire/specwire-go/handlers"
	"github.com/specwire/specwire-go/mock"
	"github.com/specwire/specwire-go/schema"
	"github.com/specwire/specwire-go/spec"
)

const (
	defaultEmissionInterval = time.Second
	defaultFormatSampleSize = 20
)

type config struct {
	mockMode            bool
	emissionInterval    time.Duration
	formatSampleSize    int
	fakerSeed           uint64
	rng                 *rand.Rand
	validation          bool
	logger              *slog.Logger
	emitter             events.Emitter
	registry            *handlers.Registry
	defaultErrorHandler handlers.Invocable
}

// Option configures a Server.
type Option func(*config)

// WithMockMode makes the server fabricate handlers and periodic
// emissions instead of requiring host-registered handlers.
func WithMockMode(enabled bool) Option {
	return func(c *config) {
		c.mockMode = enabled
	}
}

// WithEmissionInterval sets the period between fake emissions per
// subscribe-direction message in mock mode.
func WithEmissionInterval(interval time.Duration) Option {
	return func(c *config) {
		c.emissionInterval = interval
	}
}

// WithFormatSampleSize sets how many fake values are drawn per string
// format in mock mode. Zero disables the faker-backed formats entirely;
// formatted strings then degrade to generic random strings.
func WithFormatSampleSize(n int) Option {
	return func(c *config) {
		c.formatSampleSize = n
	}
}

// WithFakerSeed seeds both the payload generator and the fake-data
// pools, making mock output reproducible.
func WithFakerSeed(seed uint64) Option {
	return func(c *config) {
		c.fakerSeed = seed
		c.rng = rand.New(rand.NewSource(int64(seed)))
	}
}

// WithValidation toggles payload, binding and ack validation.
func WithValidation(enabled bool) Option {
	return func(c *config) {
		c.validation = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithEmitter sets the transport collaborator that carries outbound
// events. Without one, emissions are validated and logged only.
func WithEmitter(emitter events.Emitter) Option {
	return func(c *config) {
		c.emitter = emitter
	}
}

// WithRegistry supplies the handler registry. Handlers registered by
// the host are kept even in mock mode.
func WithRegistry(registry *handlers.Registry) Option {
	return func(c *config) {
		c.registry = registry
	}
}

// WithDefaultErrorHandler sets the handler invoked for namespaces
// without an explicit error handler.
func WithDefaultErrorHandler(fn handlers.Invocable) Option {
	return func(c *config) {
		c.defaultErrorHandler = fn
	}
}

// Server is a specification-driven event server.
type Server struct {
	doc       *spec.Document
	router    *events.Router
	generator *schema.Generator
	scheduler *mock.Scheduler
	emitter   events.Emitter
	logger    *slog.Logger

	mockMode         bool
	emissionInterval time.Duration
}

// New builds a server from a resolved document.
func New(doc *spec.Document, options ...Option) (*Server, error) {
	cfg := &config{
		emissionInterval: defaultEmissionInterval,
		formatSampleSize: defaultFormatSampleSize,
		validation:       true,
		logger:           slog.Default(),
		registry:         handlers.NewRegistry(),
	}
	for _, opt := range options {
		opt(cfg)
	}

	formats := schema.NewFormatRegistry()
	generatorOpts := []schema.GeneratorOption{schema.WithFormats(formats)}
	if cfg.rng != nil {
		generatorOpts = append(generatorOpts, schema.WithRand(cfg.rng))
	}
	generator := schema.NewGenerator(generatorOpts...)

	if cfg.mockMode {
		if cfg.formatSampleSize > 0 {
			mock.RegisterFakerFormats(formats,
				mock.WithFakerSeed(cfg.fakerSeed),
				mock.WithSampleSize(cfg.formatSampleSize))
		}
		if err := mock.RegisterFakeHandlers(cfg.registry, doc, generator); err != nil {
			return nil, fmt.Errorf("register fake handlers: %w", err)
		}
	}

	routerOpts := []events.RouterOption{
		events.WithLogger(cfg.logger),
		events.WithValidation(cfg.validation),
	}
	if cfg.defaultErrorHandler != nil {
		routerOpts = append(routerOpts, events.WithDefaultErrorHandler(cfg.defaultErrorHandler))
	}
	router, err := events.NewRouter(doc, cfg.registry, routerOpts...)
	if err != nil {
		return nil, err
	}

	server := &Server{
		doc:              doc,
		router:           router,
		generator:        generator,
		scheduler:        mock.NewScheduler(mock.WithSchedulerLogger(cfg.logger)),
		emitter:          cfg.emitter,
		logger:           cfg.logger,
		mockMode:         cfg.mockMode,
		emissionInterval: cfg.emissionInterval,
	}
	sink := server.emitter
	if sink == nil {
		sink = events.DiscardEmitter
	}
	var interceptors []events.EmitInterceptor
	if cfg.validation {
		interceptors = append(interceptors, events.ValidationInterceptor(router))
	}
	interceptors = append(interceptors, events.LoggingInterceptor(cfg.logger))
	server.emitter = events.ChainEmitter(sink, interceptors...)

	return server, nil
}

// FromFile loads, resolves and binds a specification file.
func FromFile(path string, options ...Option) (*Server, error) {
	doc, err := spec.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(doc, options...)
}

// Router returns the event router backing the server.
func (s *Server) Router() *events.Router {
	return s.router
}

// Document returns the resolved specification.
func (s *Server) Document() *spec.Document {
	return s.doc
}

// Generator returns the payload generator, whose format registry the
// host may extend.
func (s *Server) Generator() *schema.Generator {
	return s.generator
}

// Run blocks until ctx is done. In mock mode it first schedules one
// periodic fake emission per subscribe-direction message.
func (s *Server) Run(ctx context.Context) error {
	if s.mockMode {
		if err := s.startEmissions(ctx); err != nil {
			return err
		}
		defer s.scheduler.Stop()
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *Server) startEmissions(ctx context.Context) error {
	for _, emission := range mock.Emissions(s.doc, s.generator) {
		_, err := s.scheduler.Schedule(ctx, emission.Name(), s.emissionInterval, func(ctx context.Context) error {
			return emission.Emit(ctx, s.emitter)
		})
		if err != nil {
			s.scheduler.Stop()
			return err
		}
		s.logger.Info("scheduled mock emission",
			"namespace", emission.Namespace,
			"event", emission.Event,
			"interval", s.emissionInterval)
	}
	return nil
}
