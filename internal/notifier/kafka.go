package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig mirrors the "notifier.kafka" config section.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Device  string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes each event as JSON, keyed by device so one device's
// changes stay ordered within a partition.
type Kafka struct {
	w      messageWriter
	device string
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
	return &Kafka{w: w, device: cfg.Device}, nil
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Send(ctx context.Context, ev Event) error {
	if ev.Device == "" {
		ev.Device = k.device
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return k.w.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Device), Value: b, Time: ev.At})
}

func (k *Kafka) Close() error { return k.w.Close() }
