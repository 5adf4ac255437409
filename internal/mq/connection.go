package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Пределы задержки между попытками переподключения.
const (
	minRedialDelay = time.Second
	maxRedialDelay = 30 * time.Second
)

// Ошибки соединения.
var (
	// ErrNoChannel — сессии сейчас нет (идёт переподключение).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrConnectionClosed — соединение закрыто через Close.
	ErrConnectionClosed = errors.New("amqp connection closed")
)

// session — одно установленное соединение с его каналом.
type session struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connection держит сессию с RabbitMQ и восстанавливает её после разрыва.
//
// Publisher берёт текущий канал без ожидания (WithChannel),
// consumer ждёт следующую сессию (Session).
type Connection struct {
	url    string
	logger *slog.Logger

	mu  sync.RWMutex
	cur *session

	// ready закрыт, пока сессия есть; при разрыве заменяется новым
	ready chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection подключается к RabbitMQ. Первая неудача возвращается сразу,
// последующие разрывы переживаются переподключением в фоне.
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := dial(url)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		url:    url,
		logger: logger,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.install(s)
	logger.Info("connected to RabbitMQ")

	go c.supervise(s)
	return c, nil
}

func dial(url string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &session{conn: conn, ch: ch}, nil
}

// install делает s текущей сессией и будит ожидающих.
func (c *Connection) install(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = s
	close(c.ready)
}

// drop забывает сессию после разрыва.
func (c *Connection) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = nil
	c.ready = make(chan struct{})
}

// supervise ждёт разрыва сессии и переподключается, пока не вызван Close.
func (c *Connection) supervise(s *session) {
	for {
		closed := s.conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.done:
			return
		case amqpErr := <-closed:
			c.drop()
			c.logger.Warn("RabbitMQ connection lost", "error", amqpErr)
		}

		next, ok := c.redial()
		if !ok {
			return
		}
		c.install(next)
		c.logger.Info("reconnected to RabbitMQ")
		s = next
	}
}

// redial повторяет dial с растущей задержкой. false — соединение закрыто.
func (c *Connection) redial() (*session, bool) {
	for attempt := 0; ; attempt++ {
		delay := redialDelay(attempt)
		c.logger.Info("attempting to reconnect", "attempt", attempt+1, "delay", delay)

		select {
		case <-c.done:
			return nil, false
		case <-time.After(delay):
		}

		s, err := dial(c.url)
		if err == nil {
			return s, true
		}
		c.logger.Warn("reconnect failed", "error", err)
	}
}

// redialDelay возвращает 1s, 2s, 4s ... но не больше 30s.
func redialDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return minRedialDelay
	}
	if attempt >= 5 {
		return maxRedialDelay
	}
	return min(minRedialDelay<<attempt, maxRedialDelay)
}

// channel возвращает канал текущей сессии, не дожидаясь переподключения.
// Канал, закрытый сервером при живом соединении, открывается заново.
func (c *Connection) channel() (*amqp.Channel, error) {
	select {
	case <-c.done:
		return nil, ErrConnectionClosed
	default:
	}

	c.mu.RLock()
	cur := c.cur
	c.mu.RUnlock()

	switch {
	case cur == nil || cur.conn.IsClosed():
		return nil, ErrNoChannel
	case !cur.ch.IsClosed():
		return cur.ch, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Канал мог уже заменить другой вызов
	if c.cur != cur {
		if c.cur == nil {
			return nil, ErrNoChannel
		}
		return c.cur.ch, nil
	}

	ch, err := cur.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: reopen channel: %v", ErrNoChannel, err)
	}
	c.cur = &session{conn: cur.conn, ch: ch}
	c.logger.Info("reopened RabbitMQ channel")
	return ch, nil
}

// Session ждёт установленной сессии и возвращает её канал.
func (c *Connection) Session(ctx context.Context) (*amqp.Channel, error) {
	for {
		ch, err := c.channel()
		if err == nil {
			return ch, nil
		}
		if !errors.Is(err, ErrNoChannel) {
			return nil, err
		}

		c.mu.RLock()
		ready := c.ready
		if c.cur != nil {
			// Разрыв ещё не замечен supervise: ready пока закрыт
			ready = nil
		}
		c.mu.RUnlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, ErrConnectionClosed
		case <-ready:
		case <-time.After(minRedialDelay / 10):
		}
	}
}

// WithChannel вызывает fn с текущим каналом, не дожидаясь переподключения.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := c.channel()
	if err != nil {
		return err
	}
	return fn(ch)
}

// IsConnected сообщает, есть ли живая сессия.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur != nil && !c.cur.conn.IsClosed()
}

// Close закрывает сессию и останавливает переподключение.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		cur := c.cur
		c.cur = nil
		c.mu.Unlock()

		if cur != nil {
			err = errors.Join(cur.ch.Close(), cur.conn.Close())
		}
		if err == nil {
			c.logger.Info("RabbitMQ connection closed")
		}
	})
	return err
}
