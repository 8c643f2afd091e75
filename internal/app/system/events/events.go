// Package events publishes domain events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends one event. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload any) error
	Close() error
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Encode wraps payload in an Envelope with a fresh ID and returns its JSON.
func Encode(kind string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error { return nil }

var ErrClosed = errors.New("publisher is closed")

// AMQP publishes persistent JSON messages to a durable queue through the
// default exchange. A connection or channel the broker has dropped is
// redialled on the next Publish, so a broker restart costs the events sent
// while it was down and nothing after.
type AMQP struct {
	mu     sync.Mutex // amqp channels are not safe for concurrent publishes
	url    string
	queue  string
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// DialAMQP connects, opens a channel and declares queue.
func DialAMQP(url, queue string) (*AMQP, error) {
	p := &AMQP{url: url, queue: queue}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect dials the broker and declares the queue. Callers hold mu.
func (p *AMQP) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if _, err := ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

// release drops the current connection. Callers hold mu.
func (p *AMQP) release() error {
	var chErr, connErr error
	if p.ch != nil {
		chErr = p.ch.Close()
	}
	if p.conn != nil {
		connErr = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	if errors.Is(chErr, amqp.ErrClosed) {
		chErr = nil
	}
	if errors.Is(connErr, amqp.ErrClosed) {
		connErr = nil
	}
	return errors.Join(chErr, connErr)
}

func (p *AMQP) live() bool {
	return p.ch != nil && !p.ch.IsClosed() && !p.conn.IsClosed()
}

func (p *AMQP) Publish(ctx context.Context, kind string, payload any) error {
	body, err := Encode(kind, payload)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if !p.live() {
		_ = p.release()
		if err := p.connect(); err != nil {
			return fmt.Errorf("amqp redial: %w", err)
		}
	}

	err = p.publish(ctx, msg)
	if errors.Is(err, amqp.ErrClosed) {
		// Dropped between the liveness check and the publish.
		_ = p.release()
		if err := p.connect(); err != nil {
			return fmt.Errorf("amqp redial: %w", err)
		}
		err = p.publish(ctx, msg)
	}
	return err
}

func (p *AMQP) publish(ctx context.Context, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		msg,
	)
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.release()
}
