// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/convrelay/internal/adapters/upload"
	"github.com/okian/convrelay/internal/domain/dedupe"
	"github.com/okian/convrelay/internal/domain/model"
	"github.com/okian/convrelay/internal/domain/resolve"
	"github.com/okian/convrelay/pkg/logger"
	"github.com/okian/convrelay/pkg/metrics"
)

// Resolver merges the static configuration with one event into a canonical
// conversion record.
type Resolver interface {
	Resolve(cfg model.ConfigSet, event model.RawEvent) (model.ConversionRecord, error)
}

// Sender delivers a resolved record upstream.
type Sender interface {
	Send(ctx context.Context, cfg model.ConfigSet, rec model.ConversionRecord, traceID, eventName string) error
}

// Service implements the API dependencies for the conversion relay.
type Service struct {
	mu sync.RWMutex

	// Core components
	cfg      model.ConfigSet
	resolver Resolver
	sender   Sender
	deduper  dedupe.Deduper

	// Configuration
	dedupeSize int

	// State
	started   bool
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConversionConfig sets the static conversion settings merged into
// every event.
func WithConversionConfig(cfg model.ConfigSet) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithResolver sets a custom resolver.
func WithResolver(r Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithSender sets a custom upstream sender.
func WithSender(snd Sender) Option {
	return func(s *Service) {
		if snd != nil {
			s.sender = snd
		}
	}
}

// WithDedupeSize sets the size of the order-id idempotency cache.
// Zero or negative disables local duplicate suppression.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dedupeSize: 50000,
		logger:     nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting conversion relay service...")

	if s.resolver == nil {
		s.resolver = resolve.New()
	}
	if s.sender == nil {
		s.sender = upload.New()
	}
	if s.dedupeSize > 0 {
		s.deduper = dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(s.dedupeSize),
		)
	}

	s.started = true
	s.logger.Info(ctx, "conversion relay service started",
		logger.String("customerId", s.cfg.CustomerID),
		logger.Bool("ownCredentials", s.cfg.OwnCredentials),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "conversion relay service stopped")
}

// Process resolves one event against the static configuration and delivers
// the resulting record upstream. It is strictly sequential per event: resolve,
// then send. The trace id propagates into audit records; an empty one is
// replaced with a fresh UUID.
func (s *Service) Process(ctx context.Context, event model.RawEvent, traceID string) error {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	eventName := event.Name()

	metrics.RecordEventReceived()
	s.processed.Add(1)

	s.logger.Debug(ctx, "received conversion event",
		logger.String("traceId", traceID),
		logger.String("eventName", eventName),
	)

	rec, err := s.resolver.Resolve(s.cfg, event)
	if err != nil {
		metrics.RecordResolutionError()
		metrics.RecordErrorByComponent("resolver", "invalid_config")
		s.failed.Add(1)
		s.logger.Warn(ctx, "event resolution failed",
			logger.String("traceId", traceID),
			logger.Error(err),
		)
		return err
	}

	// Suppress repeats of an already relayed order. The upstream platform
	// dedupes on orderId as well; this guard just avoids pointless uploads.
	if rec.OrderID != "" && s.deduper != nil && s.deduper.SeenAndRecord(ctx, rec.OrderID) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate order suppressed",
			logger.String("traceId", traceID),
			logger.String("orderId", rec.OrderID),
		)
		return nil
	}

	if err := s.sender.Send(ctx, s.cfg, rec, traceID, eventName); err != nil {
		// Allow the order to be retried after a failed delivery.
		if rec.OrderID != "" && s.deduper != nil {
			s.deduper.Unrecord(ctx, rec.OrderID)
		}
		metrics.RecordErrorByComponent("uploader", "send_failed")
		s.failed.Add(1)
		s.logger.Warn(ctx, "conversion delivery failed",
			logger.String("traceId", traceID),
			logger.Error(err),
		)
		return err
	}

	s.succeeded.Add(1)
	s.logger.Info(ctx, "conversion relayed",
		logger.String("traceId", traceID),
		logger.String("eventName", eventName),
		logger.String("orderId", rec.OrderID),
	)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   s.started,
		"processed": s.processed.Load(),
		"succeeded": s.succeeded.Load(),
		"failed":    s.failed.Load(),
	}

	if s.deduper != nil {
		stats["dedupeEntries"] = s.deduper.Size()
	}

	return stats
}
