package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/AurLemon/course-android-mockapi/internal/config"
	"github.com/AurLemon/course-android-mockapi/internal/model"
)

const publishBuffer = 256

// sender publishes one message body on an open broker channel.
type sender interface {
	Send(ctx context.Context, body []byte) error
	Close() error
}

// Publisher forwards session events to the broker from a background
// goroutine. SessionChanged never blocks: when the buffer is full the
// event is dropped and counted.
type Publisher struct {
	log     *zap.Logger
	connect func(ctx context.Context) (sender, error)

	events  chan model.SessionEvent
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// NewPublisher returns a publisher for cfg. Call Start before use and
// Close on shutdown.
func NewPublisher(cfg config.AMQPConfig, log *zap.Logger) *Publisher {
	url, queue := cfg.BrokerURL(), cfg.Queue
	return newPublisher(log, func(context.Context) (sender, error) {
		return dialSender(url, queue)
	})
}

func newPublisher(log *zap.Logger, connect func(ctx context.Context) (sender, error)) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		log:     log.Named("events"),
		connect: connect,
		events:  make(chan model.SessionEvent, publishBuffer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the publishing goroutine.
func (p *Publisher) Start() {
	go p.run()
}

// SessionChanged enqueues ev for publishing.
func (p *Publisher) SessionChanged(_ context.Context, ev model.SessionEvent) {
	select {
	case <-p.stop:
		return
	default:
	}
	select {
	case p.events <- ev:
	default:
		n := p.dropped.Add(1)
		p.log.Warn("event buffer full, dropping", zap.String("kind", string(ev.Kind)), zap.Int64("dropped_total", n))
	}
}

// Dropped reports how many events were discarded.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Close flushes buffered events, waiting at most until ctx is done.
func (p *Publisher) Close(ctx context.Context) error {
	p.once.Do(func() { close(p.stop) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	var s sender
	defer func() {
		if s != nil {
			_ = s.Close()
		}
	}()

	for {
		select {
		case ev := <-p.events:
			s = p.publish(s, ev)
		case <-p.stop:
			for {
				select {
				case ev := <-p.events:
					s = p.publish(s, ev)
				default:
					return
				}
			}
		}
	}
}

// publish sends ev, dialing lazily and redialing once when the channel
// has gone bad. It returns the sender to reuse for the next event.
func (p *Publisher) publish(s sender, ev model.SessionEvent) sender {
	body, err := Encode(ev)
	if err != nil {
		p.log.Error("encode event", zap.Error(err))
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		if s == nil {
			if s, err = p.connect(ctx); err != nil {
				p.log.Warn("broker unavailable, event dropped", zap.String("kind", string(ev.Kind)), zap.Error(err))
				p.dropped.Add(1)
				return nil
			}
		}
		if err = s.Send(ctx, body); err == nil {
			return s
		}
		p.log.Warn("publish failed", zap.Int("attempt", attempt+1), zap.Error(err))
		_ = s.Close()
		s = nil
	}
	p.dropped.Add(1)
	return nil
}

// amqpSender publishes persistent JSON messages to a durable queue over
// the default exchange.
type amqpSender struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func dialSender(url, queue string) (sender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &amqpSender{conn: conn, ch: ch, queue: queue}, nil
}

func (s *amqpSender) Send(ctx context.Context, body []byte) error {
	return s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (s *amqpSender) Close() error {
	_ = s.ch.Close()
	return s.conn.Close()
}
