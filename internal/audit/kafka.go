package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// analyticsKeyMapping re-keys record fields for the analytical sink. The
// mapping is fixed: analytical consumers depend on these column names.
var analyticsKeyMapping = map[string]string{
	"name":                 "tag_name",
	"type":                 "entry_type",
	"trace_id":             "trace_id",
	"event_name":           "event_name",
	"request_method":       "request_method",
	"request_url":          "request_url",
	"request_body":         "request_body",
	"response_status_code": "response_status_code",
	"response_headers":     "response_headers",
	"response_body":        "response_body",
}

// KafkaSinkOption applies a configuration option to the KafkaSink.
type KafkaSinkOption func(*KafkaSink)

// WithTopic sets the destination topic.
func WithTopic(topic string) KafkaSinkOption {
	return func(s *KafkaSink) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// KafkaSink routes audit records to a Kafka topic for analytical consumers,
// re-keyed through the fixed mapping table with nested fields serialized to
// JSON strings.
type KafkaSink struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaSink creates a sink writing to the given brokers.
func NewKafkaSink(brokers []string, opts ...KafkaSinkOption) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	s := &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireOne,
			Balancer:     &kafka.Hash{},
		},
		topic: "conversion-audit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Emit writes the re-keyed record, partitioned by trace id so one
// invocation's request/response pairs land in order.
func (s *KafkaSink) Emit(ctx context.Context, rec Record) error {
	const op = "audit.kafka.emit"

	payload, err := json.Marshal(rekey(rec))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSinkEmit, err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Topic: s.topic,
		Key:   []byte(rec.TraceID),
		Value: payload,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSinkEmit, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// rekey flattens a record into the analytical column layout. Nested values
// (request bodies, response headers) become JSON strings.
func rekey(rec Record) map[string]any {
	flat := map[string]any{
		"name":       rec.Name,
		"type":       string(rec.Type),
		"trace_id":   rec.TraceID,
		"event_name": rec.EventName,
	}
	if rec.RequestMethod != "" {
		flat["request_method"] = rec.RequestMethod
	}
	if rec.RequestURL != "" {
		flat["request_url"] = rec.RequestURL
	}
	if rec.RequestBody != nil {
		flat["request_body"] = serialize(rec.RequestBody)
	}
	if rec.ResponseStatusCode != 0 {
		flat["response_status_code"] = rec.ResponseStatusCode
	}
	if rec.ResponseHeaders != nil {
		flat["response_headers"] = serialize(rec.ResponseHeaders)
	}
	if rec.ResponseBody != "" {
		flat["response_body"] = rec.ResponseBody
	}

	out := make(map[string]any, len(flat))
	for key, value := range flat {
		if mapped, ok := analyticsKeyMapping[key]; ok {
			out[mapped] = value
		}
	}
	return out
}

func serialize(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
