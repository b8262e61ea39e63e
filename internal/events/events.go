// Package events publishes lifecycle notifications for downstream consumers
// (feed builders, notification workers, rank recalculation). Payloads are
// msgpack-encoded and delivery is best effort.
package events

import (
	"context"
	"time"

	"github.com/artfundry/bounty-server/internal/config"
	"github.com/artfundry/bounty-server/internal/mq"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

type BountyCreated struct {
	BountyID   int64     `msgpack:"bounty_id"`
	UserID     uuid.UUID `msgpack:"user_id"`
	Name       string    `msgpack:"name"`
	Type       string    `msgpack:"type"`
	UnitAmount int64     `msgpack:"unit_amount"`
	CreatedAt  time.Time `msgpack:"created_at"`
}

type BountyFunded struct {
	BountyID    int64     `msgpack:"bounty_id"`
	UserID      uuid.UUID `msgpack:"user_id"`
	UnitAmount  int64     `msgpack:"unit_amount"`
	TotalAmount int64     `msgpack:"total_amount"`
	FundedAt    time.Time `msgpack:"funded_at"`
}

type BountyDeleted struct {
	BountyID  int64     `msgpack:"bounty_id"`
	UserID    uuid.UUID `msgpack:"user_id"`
	DeletedAt time.Time `msgpack:"deleted_at"`
}

type BountyRefunded struct {
	BountyID   int64     `msgpack:"bounty_id"`
	UserID     uuid.UUID `msgpack:"user_id"`
	UnitAmount int64     `msgpack:"unit_amount"`
	RefundedAt time.Time `msgpack:"refunded_at"`
}

// Publisher fans lifecycle events out over the message queue. A nil Publisher
// is safe to call and drops everything, which keeps tests and queue-less
// deployments simple.
type Publisher struct {
	mq     mq.MQ
	logger *zap.Logger
}

func NewPublisher(queue mq.MQ, logger *zap.Logger) *Publisher {
	return &Publisher{mq: queue, logger: logger}
}

func (p *Publisher) BountyCreated(ctx context.Context, event BountyCreated) {
	p.publish(ctx, config.TopicBountyCreated, event)
}

func (p *Publisher) BountyFunded(ctx context.Context, event BountyFunded) {
	p.publish(ctx, config.TopicBountyFunded, event)
}

func (p *Publisher) BountyDeleted(ctx context.Context, event BountyDeleted) {
	p.publish(ctx, config.TopicBountyDeleted, event)
}

func (p *Publisher) BountyRefunded(ctx context.Context, event BountyRefunded) {
	p.publish(ctx, config.TopicBountyRefunded, event)
}

func (p *Publisher) publish(ctx context.Context, topic string, event interface{}) {
	if p == nil || p.mq == nil {
		return
	}

	data, err := msgpack.Marshal(event)
	if err != nil {
		p.warn("failed to encode event", topic, err)
		return
	}

	if err := p.mq.Publish(ctx, topic, data); err != nil {
		p.warn("failed to publish event", topic, err)
	}
}

func (p *Publisher) warn(msg, topic string, err error) {
	if p.logger != nil {
		p.logger.Warn(msg, zap.String("topic", topic), zap.Error(err))
	}
}
