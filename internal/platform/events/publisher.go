package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// TypeSubmissionFinalized is emitted once per committed submission.
const TypeSubmissionFinalized = "submission.finalized"

// SubmissionFinalized is the payload of TypeSubmissionFinalized.
type SubmissionFinalized struct {
	Type          string    `json:"type"`
	SubmissionID  string    `json:"submission_id"`
	UserID        string    `json:"user_id"`
	ProblemID     string    `json:"problem_id"`
	ProblemNumber int       `json:"problem_number"`
	Mode          string    `json:"mode"`
	Status        string    `json:"status"`
	Score         int       `json:"score"`
	RuntimeMs     int       `json:"runtime_ms"`
	MemoryKb      int       `json:"memory_kb"`
	FirstSolve    bool      `json:"first_solve"`
	BestReplaced  bool      `json:"best_replaced"`
	FinalizedAt   time.Time `json:"finalized_at"`
}

// Publisher emits domain events keyed for partitioning.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher writes JSON events to topic. Events with the same key land
// on the same partition.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events.Publish marshal: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }
