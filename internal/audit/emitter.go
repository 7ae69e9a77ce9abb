package audit

import (
	"context"

	"github.com/okian/convrelay/pkg/logger"
)

// Sink receives audit records. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, rec Record) error
}

// Option applies a configuration option to the Emitter.
type Option func(*Emitter)

// WithPolicy sets when records are emitted.
func WithPolicy(p Policy) Option {
	return func(e *Emitter) {
		if p != "" {
			e.policy = p
		}
	}
}

// WithDebugReporter sets the runtime debug-mode probe used by PolicyDebug.
func WithDebugReporter(r DebugReporter) Option {
	return func(e *Emitter) {
		if r != nil {
			e.debug = r
		}
	}
}

// WithSink adds a sink to the fan-out list.
func WithSink(s Sink) Option {
	return func(e *Emitter) {
		if s != nil {
			e.sinks = append(e.sinks, s)
		}
	}
}

// WithLogger sets the logger used to report sink failures.
func WithLogger(l logger.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.log = l
		}
	}
}

// Emitter fans audit records out to its sinks when the policy allows.
// Sink failures are logged and swallowed: auditing never fails an upload.
type Emitter struct {
	policy Policy
	debug  DebugReporter
	sinks  []Sink
	log    logger.Logger
}

// New constructs an Emitter. Without options it is debug-gated with the
// environment-based debug probe and no sinks.
func New(opts ...Option) *Emitter {
	e := &Emitter{
		policy: PolicyDebug,
		debug:  EnvDebugReporter,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enabled reports whether records would currently be emitted.
func (e *Emitter) Enabled() bool {
	switch e.policy {
	case PolicyAlways:
		return true
	case PolicyNever:
		return false
	default:
		return e.debug()
	}
}

// Emit sends rec to every sink, subject to the policy.
func (e *Emitter) Emit(ctx context.Context, rec Record) {
	if !e.Enabled() {
		return
	}
	for _, sink := range e.sinks {
		if err := sink.Emit(ctx, rec); err != nil && e.log != nil {
			e.log.Warn(ctx, "audit sink emit failed",
				logger.String("name", rec.Name),
				logger.String("type", string(rec.Type)),
				logger.Error(err),
			)
		}
	}
}

// LogSink writes audit records through the structured logger.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a sink backed by the given logger.
func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{log: l}
}

// Emit logs the record at info level with its populated fields.
func (s *LogSink) Emit(ctx context.Context, rec Record) error {
	fields := []logger.Field{
		logger.String("name", rec.Name),
		logger.String("type", string(rec.Type)),
		logger.String("traceId", rec.TraceID),
		logger.String("eventName", rec.EventName),
	}
	switch rec.Type {
	case TypeRequest:
		fields = append(fields,
			logger.String("requestMethod", rec.RequestMethod),
			logger.String("requestUrl", rec.RequestURL),
		)
		if rec.RequestBody != nil {
			fields = append(fields, logger.Any("requestBody", rec.RequestBody))
		}
	case TypeResponse:
		fields = append(fields,
			logger.Int("responseStatusCode", rec.ResponseStatusCode),
			logger.Any("responseHeaders", rec.ResponseHeaders),
			logger.String("responseBody", rec.ResponseBody),
		)
	}
	s.log.Info(ctx, "network call audit", fields...)
	return nil
}
