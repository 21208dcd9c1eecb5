package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/sportshub-ticketing/internal/booking"
	"github.com/iliyamo/sportshub-ticketing/internal/config"
	"github.com/iliyamo/sportshub-ticketing/internal/logging"
	"github.com/iliyamo/sportshub-ticketing/internal/metrics"
)

// ErrBacklogFull is returned by OnBookingEvent when the outgoing buffer
// has no room; the event is dropped.
var ErrBacklogFull = errors.New("booking event backlog full")

// defaultBacklog bounds events waiting for the broker.
const defaultBacklog = 256

type outgoing struct {
	ctx context.Context
	ev  BookingEvent
}

// Publisher sends BookingEvents to a durable queue.  Events are handed to
// a single background sender, so a slow or unreachable broker never holds
// up the request that produced them.  The connection is opened on first
// use and re-dialled after any failure.
type Publisher struct {
	cfg config.QueueConfig

	pending chan outgoing
	quit    chan struct{}
	done    chan struct{}
	stop    sync.Once

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher starts the background sender.  Close stops it.
func NewPublisher(cfg config.QueueConfig) *Publisher {
	p := newPublisher(cfg, defaultBacklog)
	go p.loop()
	return p
}

func newPublisher(cfg config.QueueConfig, backlog int) *Publisher {
	return &Publisher{
		cfg:     cfg,
		pending: make(chan outgoing, backlog),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnBookingEvent implements booking.Listener.  It only enqueues; the
// request context is detached so a client hanging up does not drop the
// event.
func (p *Publisher) OnBookingEvent(ctx context.Context, ev booking.Event) error {
	select {
	case <-p.quit:
		return amqp.ErrClosed
	default:
	}
	select {
	case p.pending <- outgoing{ctx: context.WithoutCancel(ctx), ev: NewBookingEvent(ev)}:
		return nil
	default:
		return ErrBacklogFull
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	for {
		select {
		case m := <-p.pending:
			p.send(m.ctx, m.ev)
		case <-p.quit:
			p.flush()
			return
		}
	}
}

// flush gives queued events one PublishTimeout in total on shutdown.
func (p *Publisher) flush() {
	timeout := p.cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	dropped := 0
	for {
		select {
		case m := <-p.pending:
			if ctx.Err() != nil {
				dropped++
				continue
			}
			p.send(ctx, m.ev)
		default:
			if dropped > 0 {
				metrics.EventPublishFailures.Add(float64(dropped))
				logging.Warn().Int("dropped", dropped).Msg("booking events dropped on shutdown")
			}
			return
		}
	}
}

func (p *Publisher) send(ctx context.Context, ev BookingEvent) {
	if err := p.Publish(ctx, ev); err != nil {
		metrics.EventPublishFailures.Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("type", ev.Type).Uint64("booking_id", ev.BookingID).Msg("booking event not published")
	}
}

// Publish marshals ev and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if p.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PublishTimeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",          // default exchange
		p.cfg.Queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	logging.Ctx(ctx).Debug().Str("type", ev.Type).Uint64("booking_id", ev.BookingID).Msg("booking event published")
	return nil
}

// channel returns an open channel, dialling if needed.  Caller holds mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	dialTimeout := p.cfg.PublishTimeout
	if dialTimeout <= 0 {
		dialTimeout = 30 * time.Second
	}
	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close stops the sender after a bounded flush and releases the broker
// connection.
func (p *Publisher) Close() error {
	p.stop.Do(func() { close(p.quit) })
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.ch, p.conn = nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
