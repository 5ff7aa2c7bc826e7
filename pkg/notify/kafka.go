package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"dormscout-backend/model"
)

type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher builds an async writer so a slow or unreachable broker
// never holds up listing creation. Delivery failures are logged.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("wishlist match not published",
					zap.String("topic", topic),
					zap.Int("messages", len(messages)),
					zap.Error(err))
			}
		},
	}}
}

// Notify keys messages by user id so one user's matches stay ordered.
func (p *KafkaPublisher) Notify(ctx context.Context, match model.WishlistMatch) error {
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{Key: []byte(match.UserID), Value: data})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
