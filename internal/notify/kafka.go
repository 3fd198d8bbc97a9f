package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSender implements Sender by publishing delivery events to a Kafka
// topic. The delivery worker consumes the topic and sends the mail.
type KafkaSender struct {
	writer *kafka.Writer
}

// NewKafkaSender creates a sender that writes delivery events to the given topic.
// Returns nil when brokers or topic are unset. Call Close when shutting down.
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaSender{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}}
}

// Send serializes the delivery as JSON and writes it to the topic, keyed by
// recipient so deliveries to one address stay ordered. A short timeout keeps
// slow Kafka from blocking the auth request.
func (s *KafkaSender) Send(ctx context.Context, d CodeDelivery) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(d.Email),
		Value: payload,
	})
}

// Close closes the Kafka writer. Safe to call multiple times.
func (s *KafkaSender) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

// NewDeliveryReader returns a Kafka reader for the delivery worker.
func NewDeliveryReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
}
