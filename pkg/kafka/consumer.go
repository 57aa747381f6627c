package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type EventHandler func(ctx context.Context, ev EventBorrowing) error

// Consumer decodes borrowing events and hands them to an EventHandler.
// Undecodable messages are skipped; a handler error leaves the message unmarked.
type Consumer struct {
	handle EventHandler
	log    *zap.Logger
}

var _ sarama.ConsumerGroupHandler = (*Consumer)(nil)

func NewConsumer(handle EventHandler, log *zap.Logger) *Consumer {
	return &Consumer{
		handle: handle,
		log:    log.Named("consumer"),
	}
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				c.log.Warn("message channel was closed")
				return nil
			}
			var ev EventBorrowing
			if err := json.Unmarshal(message.Value, &ev); err != nil {
				c.log.Error("decode event", zap.Error(err), zap.Int64("offset", message.Offset))
				session.MarkMessage(message, "")
				continue
			}
			if err := c.handle(session.Context(), ev); err != nil {
				c.log.Error("handle event", zap.String("event_id", ev.EventID), zap.Error(err))
				continue
			}
			c.log.Debug("Message claimed:",
				zap.String("event_id", ev.EventID),
				zap.Time("timestamp", message.Timestamp),
				zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func NewConsumerGroup(cfg Config) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()
	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	defaultCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	defaultCfg.Net.DialTimeout = 2 * time.Second

	group, err := sarama.NewConsumerGroup(cfg.Addrs, cfg.ConsumerGroup, defaultCfg)
	if err != nil {
		return nil, errors.Wrap(err, "sarama.NewConsumerGroup")
	}
	return group, nil
}

// Consume joins the group until ctx is done. Consume returns on every rebalance,
// so it is called in a loop.
func Consume(ctx context.Context, group sarama.ConsumerGroup, c *Consumer, topic string) error {
	for {
		if err := group.Consume(ctx, []string{topic}, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return errors.Wrap(err, "consume")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
