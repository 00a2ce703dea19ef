package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/solatis/alertkeeper/internal/types"
)

// messageWriter is the subset of *kafka.Writer the handler uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOptions configures a KafkaHandler.
type KafkaOptions struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaHandler publishes each action as a JSON Event keyed by rule id, so
// all actions of one rule land on the same partition.
type KafkaHandler struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaHandler returns a handler with a synchronous writer over opts.Brokers.
func NewKafkaHandler(opts KafkaOptions) (*KafkaHandler, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if opts.Topic == "" {
		return nil, errors.New("topic is required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        opts.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: opts.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
		BatchSize:    1,
		Async:        false,
	}
	return newKafkaHandler(w), nil
}

func newKafkaHandler(w messageWriter) *KafkaHandler {
	return &KafkaHandler{writer: w, now: time.Now}
}

func (h *KafkaHandler) ID() string { return KafkaID }

func (h *KafkaHandler) Handle(ctx context.Context, action types.Action) error {
	ev := newEvent(ctx, action, h.now())
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serialize action: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(action.RuleID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "rule_id", Value: []byte(action.RuleID)},
			{Key: "message_key", Value: []byte(action.MessageKey)},
			{Key: "level", Value: []byte(action.Level.String())},
		},
		Time: ev.EmittedAt,
	}
	if ev.RecordID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "record_id", Value: []byte(ev.RecordID)})
	}

	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (h *KafkaHandler) Close() error {
	return h.writer.Close()
}
