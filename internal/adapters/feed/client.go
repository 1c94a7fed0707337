package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

const (
	defaultHeartbeat = 4 * time.Second
	defaultReconnect = 5 * time.Second
	writeTimeout     = 5 * time.Second
)

// controlMessage is the subscribe/unsubscribe request sent to the server.
type controlMessage struct {
	Action string `json:"action"`
	Pair   string `json:"pair"`
}

// Client implements the ports.RateFeed interface over a WebSocket stream.
//
// The connection is owned by a single run loop: it dials, replays pair
// subscriptions, pumps messages, and on any failure waits a fixed delay
// before dialing again. Consumers never see the reconnects, only the
// IsConnected flag.
type Client struct {
	url            string
	logger         ports.Logger
	heartbeat      time.Duration
	reconnectDelay time.Duration
	dialer         *websocket.Dialer

	// writeMu serializes data-frame writes on the connection. The websocket
	// package allows at most one concurrent writer; only WriteControl, which
	// the heartbeat uses, is exempt.
	writeMu sync.Mutex

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	closed     bool
	nextID     uint64
	handlers   map[uint64]*handlerEntry
	pairCounts map[domain.Pair]int
	cancelRun  context.CancelFunc
	runDone    chan struct{}
}

type handlerEntry struct {
	pair    *domain.Pair // nil for the shared stream
	handler func(domain.RateUpdate)
}

// Config holds configuration for the feed client.
type Config struct {
	URL               string
	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	Logger            ports.Logger
}

// New creates a feed client. The connection is not opened until Start.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for feed client")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required for feed client: %w", ports.ErrConfigurationError)
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	reconnect := cfg.ReconnectDelay
	if reconnect <= 0 {
		reconnect = defaultReconnect
	}
	return &Client{
		url:            cfg.URL,
		logger:         cfg.Logger,
		heartbeat:      heartbeat,
		reconnectDelay: reconnect,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		handlers:       make(map[uint64]*handlerEntry),
		pairCounts:     make(map[domain.Pair]int),
	}, nil
}

// Start launches the connection loop. It returns immediately; the loop keeps
// reconnecting until ctx is cancelled or Close is called.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("feed client is closed")
	}
	if c.runDone != nil {
		c.mu.Unlock()
		return fmt.Errorf("feed client already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancelRun = cancel
	done := make(chan struct{})
	c.runDone = done
	c.mu.Unlock()

	go c.run(runCtx, done)
	return nil
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Factor 1 keeps the delay fixed between attempts.
	delay := &backoff.Backoff{
		Min:    c.reconnectDelay,
		Max:    c.reconnectDelay,
		Factor: 1,
		Jitter: false,
	}

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.logger.Warn(ctx, "feed dial failed, will retry",
				map[string]interface{}{"url": c.url, "error": err.Error()})
			if !sleepCtx(ctx, delay.Duration()) {
				return
			}
			continue
		}

		c.attach(ctx, conn)
		c.pump(ctx, conn)
		c.detach(ctx, conn)

		if !sleepCtx(ctx, delay.Duration()) {
			return
		}
	}
}

// attach installs a fresh connection and replays active pair subscriptions.
func (c *Client) attach(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	pairs := make([]domain.Pair, 0, len(c.pairCounts))
	for pair := range c.pairCounts {
		pairs = append(pairs, pair)
	}
	c.mu.Unlock()

	c.logger.Info(ctx, "feed connected", map[string]interface{}{"url": c.url, "pairs": len(pairs)})
	for _, pair := range pairs {
		c.sendControl(ctx, conn, "subscribe", pair)
	}
}

func (c *Client) detach(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.connected = false
	}
	c.mu.Unlock()
	conn.Close()
	c.logger.Warn(ctx, "feed disconnected", map[string]interface{}{"url": c.url})
}

// pump runs the read loop and the heartbeat ticker until either fails.
func (c *Client) pump(ctx context.Context, conn *websocket.Conn) {
	readDeadline := 2 * c.heartbeat
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	conn.SetPingHandler(func(payload string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(writeTimeout))
	})

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(c.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-pumpCtx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn(ctx, "feed read failed", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		var update domain.RateUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			c.logger.Warn(ctx, "dropping undecodable feed message", map[string]interface{}{"error": err.Error()})
			continue
		}
		if update.Rate <= 0 || !update.Pair().IsValid() {
			continue
		}
		c.dispatch(update)
	}
}

func (c *Client) dispatch(update domain.RateUpdate) {
	pair := update.Pair()

	c.mu.Lock()
	targets := make([]func(domain.RateUpdate), 0, len(c.handlers))
	for _, entry := range c.handlers {
		if entry.pair == nil || *entry.pair == pair {
			targets = append(targets, entry.handler)
		}
	}
	c.mu.Unlock()

	for _, handler := range targets {
		handler(update)
	}
}

// Subscribe registers a handler for every update on the shared stream.
func (c *Client) Subscribe(handler func(domain.RateUpdate)) ports.Subscription {
	return c.register(nil, handler)
}

// SubscribePair registers a handler for one pair and asks the server to
// stream it while at least one subscriber remains.
func (c *Client) SubscribePair(pair domain.Pair, handler func(domain.RateUpdate)) ports.Subscription {
	return c.register(&pair, handler)
}

func (c *Client) register(pair *domain.Pair, handler func(domain.RateUpdate)) ports.Subscription {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[id] = &handlerEntry{pair: pair, handler: handler}

	var conn *websocket.Conn
	first := false
	if pair != nil {
		c.pairCounts[*pair]++
		first = c.pairCounts[*pair] == 1
		conn = c.conn
	}
	c.mu.Unlock()

	if first && conn != nil {
		c.sendControl(context.Background(), conn, "subscribe", *pair)
	}
	return &subscription{client: c, id: id}
}

func (c *Client) unregister(id uint64) {
	c.mu.Lock()
	entry, ok := c.handlers[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.handlers, id)

	var conn *websocket.Conn
	last := false
	var pair domain.Pair
	if entry.pair != nil {
		pair = *entry.pair
		c.pairCounts[pair]--
		if c.pairCounts[pair] <= 0 {
			delete(c.pairCounts, pair)
			last = true
			conn = c.conn
		}
	}
	c.mu.Unlock()

	if last && conn != nil {
		c.sendControl(context.Background(), conn, "unsubscribe", pair)
	}
}

func (c *Client) sendControl(ctx context.Context, conn *websocket.Conn, action string, pair domain.Pair) {
	msg := controlMessage{Action: action, Pair: pair.String()}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		c.logger.Warn(ctx, "failed to send feed control message",
			map[string]interface{}{"action": action, "pair": pair.String(), "error": err.Error()})
	}
}

// IsConnected reports whether the stream is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears down the connection and stops reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancelRun
	conn := c.conn
	done := c.runDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
	return nil
}

// subscription implements ports.Subscription.
type subscription struct {
	client *Client
	id     uint64
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.client.unregister(s.id) })
}

// sleepCtx waits for d, returning false when ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
