package docstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the fanout exchange used by AMQPFeed.
const DefaultExchange = "docstore.changes"

type AMQPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string // default "/"
	UseTLS   bool
	Exchange string
}

// AMQPFeed fans change events out through a RabbitMQ exchange, so every process
// sharing the database gets every event.
type AMQPFeed struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex // serialises Publish on ch
}

func DialAMQPFeed(cfg AMQPConfig) (*AMQPFeed, error) {
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	scheme := "amqp"
	if cfg.UseTLS {
		scheme = "amqps"
	}
	url := fmt.Sprintf("%s://%s:%s@%s:%d/%s",
		scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.VHost)

	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.UseTLS {
		conn, err = amqp.DialTLS(url, &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(url)
	}
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &AMQPFeed{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

func (f *AMQPFeed) Close() {
	if f.ch != nil {
		_ = f.ch.Close()
	}
	if f.conn != nil {
		_ = f.conn.Close()
	}
}

func (f *AMQPFeed) Publish(ctx context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch.PublishWithContext(ctx, f.exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "text/plain",
		Timestamp:    time.Now(),
		Body:         []byte(collection),
	})
}

// Listen consumes from a private queue bound to the exchange until ctx is done
// or the broker closes the delivery channel.
func (f *AMQPFeed) Listen(ctx context.Context, fn func(ctx context.Context, collection string)) error {
	ch, err := f.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", f.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("rabbitmq delivery channel closed")
			}
			fn(ctx, string(d.Body))
		}
	}
}
