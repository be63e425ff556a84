package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/events"
	"github.com/segmentio/kafka-go"
)

const (
	eventTypeTurnPublished = "turn.published"
	kafkaDialTimeout       = 10 * time.Second
	kafkaWriteTimeout      = 10 * time.Second
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// KafkaPublisher writes turn events keyed by session ID, so every turn of
// a session lands on the same partition in order. When disabled it only logs.
type KafkaPublisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
}

func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		slog.Info("kafka disabled, turn events are logged only")
		return &KafkaPublisher{topic: cfg.Topic}
	}

	dialer := &kafka.Dialer{
		Timeout:   kafkaDialTimeout,
		DualStack: true,
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: kafkaWriteTimeout,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}
	slog.Info("kafka publisher initialized", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &KafkaPublisher{
		writer:  writer,
		topic:   cfg.Topic,
		enabled: true,
	}
}

func (p *KafkaPublisher) PublishTurn(ctx context.Context, event events.TurnEvent) error {
	msg, err := turnMessage(event)
	if err != nil {
		return err
	}
	slog.Debug("publishing turn event", "topic", p.topic, "session_id", event.SessionID, "turn_id", event.Turn.ID, "generation", event.Generation)
	if !p.enabled {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write turn event to %s: %w", p.topic, err)
	}
	return nil
}

func turnMessage(event events.TurnEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode turn event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventTypeTurnPublished)},
			{Key: "generation", Value: []byte(strconv.FormatUint(event.Generation, 10))},
		},
	}, nil
}

func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
