package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per movement keyed by "<item_type>:<item_id>",
// so every item's movements stay ordered within a partition.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}
	return &KafkaPublisher{writer: writer}
}

// NewKafkaPublisherWithWriter is used when the writer is configured elsewhere.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, movements []StockMovement) error {
	msgs := make([]kafka.Message, 0, len(movements))
	for _, m := range movements {
		value, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal stock movement: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(m.ItemType + ":" + strconv.FormatUint(uint64(m.ItemID), 10)),
			Value: value,
			Time:  m.Timestamp,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte("stock." + m.MovementType)},
			},
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write stock movements to kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
