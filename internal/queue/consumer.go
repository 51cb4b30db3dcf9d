package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/AurLemon/course-android-mockapi/internal/config"
)

var errDeliveriesClosed = errors.New("deliveries channel closed")

// StartAuditConsumer consumes the session event queue and writes one
// structured line per event to sink. It reconnects with exponential
// backoff until ctx is cancelled, then returns ctx.Err(). A broker URL
// that cannot be parsed fails immediately.
func StartAuditConsumer(ctx context.Context, cfg config.AMQPConfig, log, sink *zap.Logger) error {
	log = log.Named("audit-consumer")
	url := cfg.BrokerURL()
	if _, err := amqp.ParseURI(url); err != nil {
		return fmt.Errorf("audit consumer: broker url: %w", err)
	}

	for ctx.Err() == nil {
		var conn *amqp.Connection
		err := retry.Do(ctx, dialBackoff(), func(ctx context.Context) error {
			c, err := amqp.Dial(url)
			if err != nil {
				log.Warn("dial broker failed, retrying", zap.Error(err))
				return retry.RetryableError(err)
			}
			conn = c
			return nil
		})
		if err != nil {
			break // only a cancelled ctx ends the retry loop
		}

		err = consumeConn(ctx, conn, cfg.Queue, log, sink)
		_ = conn.Close()
		if ctx.Err() != nil {
			break
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
		}
	}
	return ctx.Err()
}

func dialBackoff() retry.Backoff {
	return retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second))
}

func consumeConn(ctx context.Context, conn *amqp.Connection, queue string, log, sink *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	return drain(ctx, msgs, log, sink)
}

// drain handles deliveries until ctx is done or msgs closes. Malformed
// messages are rejected without requeue.
func drain(ctx context.Context, msgs <-chan amqp.Delivery, log, sink *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			if err := handleDelivery(d.Body, sink); err != nil {
				log.Warn("reject message", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleDelivery(body []byte, sink *zap.Logger) error {
	ev, err := Decode(body)
	if err != nil {
		return err
	}
	sink.Info("session event", AuditFields(ev)...)
	return nil
}
