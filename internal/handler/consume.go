package handler

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/shelfbridge/loansync-service/internal/model"
)

type loanEvent func(ctx context.Context, ev model.LoanEvent) error

// Consumer persists loan events from the audit topic.
type Consumer struct {
	eventHandler loanEvent
	log          *zap.Logger
	ready        chan bool
	readyOnce    sync.Once
}

func NewConsumer(handler loanEvent, log *zap.Logger) *Consumer {
	return &Consumer{
		eventHandler: handler,
		log:          log.Named("consumer"),
		ready:        make(chan bool),
	}
}

// Ready is closed once the consumer has joined its first session.
func (consumer *Consumer) Ready() <-chan bool {
	return consumer.ready
}

// Setup runs again on every rebalance, so the ready close is one-shot.
func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	consumer.readyOnce.Do(func() {
		close(consumer.ready)
	})
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var ev model.LoanEvent
			if err := json.Unmarshal(message.Value, &ev); err != nil {
				consumer.log.Error("", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			if err := consumer.eventHandler(context.Background(), ev); err != nil {
				consumer.log.Error("consumer.eventHandler", zap.Error(err))
				continue
			}

			consumer.log.Debug("Message claimed:", zap.String("value", string(message.Value)), zap.Time("timestamp", message.Timestamp), zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
