package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/couchcryptid/harvest-risk-service/internal/config"
	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces assessment reports and alerts. Each message carries its own
// topic, so one Writer serves every output topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer       *kafkago.Writer
	defaultTopic string
	logger       *slog.Logger
}

// NewWriter creates a Kafka producer. Events without a topic go to the
// assessment topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, defaultTopic: cfg.KafkaAssessmentTopic, logger: logger}
}

// LoadBatch writes all events in a single call.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(events))
	for _, event := range events {
		msgs = append(msgs, toMessage(event, w.defaultTopic))
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("batch written", "count", len(msgs))
	return nil
}

// Close flushes pending writes and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// toMessage converts an output event into a Kafka message. Headers are sorted
// by key.
func toMessage(event domain.OutputEvent, defaultTopic string) kafkago.Message {
	topic := event.Topic
	if topic == "" {
		topic = defaultTopic
	}

	keys := make([]string, 0, len(event.Headers))
	for k := range event.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(event.Headers[k])})
	}

	return kafkago.Message{
		Topic:   topic,
		Key:     event.Key,
		Value:   event.Value,
		Headers: headers,
	}
}
