package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"orderetl/internal/csvio"
	"orderetl/internal/model"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Publisher receives the complete KPI set of one run
type Publisher interface {
	Publish(ctx context.Context, runID uuid.UUID, kpis []model.KPIRecord) error
}

// MultiPublisherImpl writes to multiple publishers sequentially.
type MultiPublisherImpl struct {
	pubs []Publisher
}

func MultiPublisher(pubs ...Publisher) Publisher {
	return &MultiPublisherImpl{pubs: pubs}
}

func (m *MultiPublisherImpl) Publish(ctx context.Context, runID uuid.UUID, kpis []model.KPIRecord) error {
	for _, p := range m.pubs {
		if err := p.Publish(ctx, runID, kpis); err != nil {
			return err
		}
	}
	return nil
}

// FilePublisher rewrites the KPI file on every run
type FilePublisher struct {
	path string
}

func NewFilePublisher(path string) *FilePublisher {
	return &FilePublisher{path: path}
}

func (f *FilePublisher) Publish(_ context.Context, _ uuid.UUID, kpis []model.KPIRecord) error {
	if err := csvio.WriteKPIs(f.path, kpis); err != nil {
		return fmt.Errorf("write kpi file: %w", err)
	}
	return nil
}

// kpiMessage is the Kafka payload, one per KPI
type kpiMessage struct {
	RunID       string `json:"run_id"`
	Name        string `json:"kpi_name"`
	Value       string `json:"value"`
	Position    int    `json:"position"`
	PublishedAt int64  `json:"published_at"`
}

// KafkaPublisher sends each KPI as a record keyed by its name, so a compacted
// topic keeps the latest value of every KPI.
type KafkaPublisher struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaPublisher creates a Kafka KPI publisher.
// bootstrap can be comma-separated brokers.
func NewKafkaPublisher(bootstrap string, topic string) *KafkaPublisher {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			brokers = append(brokers, a)
		}
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

// NewKafkaPublisherWith is only for tests to inject a fake writer.
func NewKafkaPublisherWith(w kafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) Publish(ctx context.Context, runID uuid.UUID, kpis []model.KPIRecord) error {
	now := time.Now().UTC().Unix()
	msgs := make([]kafka.Message, 0, len(kpis))
	for i, kpi := range kpis {
		b, err := json.Marshal(kpiMessage{
			RunID:       runID.String(),
			Name:        kpi.Name,
			Value:       kpi.Value,
			Position:    i,
			PublishedAt: now,
		})
		if err != nil {
			return fmt.Errorf("marshal %s: %w", kpi.Name, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(kpi.Name), Value: b})
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d kpis to kafka: %w", len(msgs), err)
	}
	return nil
}

// Close releases the underlying writer when it holds connections
func (k *KafkaPublisher) Close() error {
	if c, ok := k.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
