// Package publish announces completed reports on a Kafka topic so
// downstream systems can react without polling the API.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ashita-ai/kenko/internal/model"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "kenko.reports"

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("publish: publisher closed")

// Event is the message value for one completed report.
type Event struct {
	ReportID         string             `json:"report_id"`
	AsOf             string             `json:"as_of"`
	OverallScore     float64            `json:"overall_score"`
	Status           model.HealthStatus `json:"status"`
	CriticalAreas    []model.Area       `json:"critical_areas"`
	RecommendedFocus string             `json:"recommended_focus"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// NewEvent condenses r into its announcement.
func NewEvent(r model.Report) Event {
	areas := r.CriticalAreas()
	if areas == nil {
		areas = []model.Area{}
	}
	return Event{
		ReportID:         r.ID.String(),
		AsOf:             r.AsOf.Format("2006-01-02"),
		OverallScore:     r.HealthScore.Overall,
		Status:           r.HealthScore.Status,
		CriticalAreas:    areas,
		RecommendedFocus: r.ExecutiveSummary.RecommendedFocus,
		GeneratedAt:      r.GeneratedAt,
	}
}

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per report, keyed by report id.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewKafkaPublisher creates a publisher for topic on brokers. Connections are
// opened lazily on the first write.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, logger)
}

func newPublisher(w messageWriter, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger}
}

// ReportCompleted publishes the event for r.
func (p *KafkaPublisher) ReportCompleted(ctx context.Context, r model.Report) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	value, err := json.Marshal(NewEvent(r))
	if err != nil {
		return fmt.Errorf("publish: marshal event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(r.ID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}); err != nil {
		return fmt.Errorf("publish: write report %s: %w", r.ID, err)
	}
	p.logger.Debug("report published", "report_id", r.ID)
	return nil
}

// Close flushes pending messages and closes the writer. Safe to call more
// than once.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
