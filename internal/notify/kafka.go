package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageWriter is the subset of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NudgeEvent is the payload published for every new nudge
type NudgeEvent struct {
	NudgeID   int64            `json:"nudge_id"`
	UserID    int64            `json:"user_id"`
	Email     string           `json:"email,omitempty"`
	Kind      models.NudgeKind `json:"kind"`
	Message   string           `json:"message"`
	Trigger   string           `json:"trigger"`
	CreatedAt time.Time        `json:"created_at"`
}

// KafkaPublisher publishes new nudges to a topic, keyed by user so a user's
// nudges stay ordered within one partition
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    *logrus.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string, log *logrus.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, topic: topic, log: log}, nil
}

func (p *KafkaPublisher) Name() string { return "kafka" }

// Notify writes one message per nudge in a single batch
func (p *KafkaPublisher) Notify(ctx context.Context, user models.User, nudges []models.Nudge) error {
	if len(nudges) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(nudges))
	for _, n := range nudges {
		payload, err := json.Marshal(NudgeEvent{
			NudgeID:   n.ID,
			UserID:    n.UserID,
			Email:     user.Email,
			Kind:      n.Kind,
			Message:   n.Message,
			Trigger:   n.Trigger,
			CreatedAt: n.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal nudge %d: %w", n.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(n.UserID, 10)),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(n.Kind)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d nudges to %s: %w", len(msgs), p.topic, err)
	}
	p.log.Debugf("Published %d nudges for user %d to %s", len(msgs), user.ID, p.topic)
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
