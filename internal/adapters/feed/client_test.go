package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxwatch/internal/domain"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// feedServer is a scripted WebSocket endpoint for tests.
type feedServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	srv      *httptest.Server

	mu       sync.Mutex
	conns    []*websocket.Conn
	controls []controlMessage
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{t: t}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := fs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.mu.Unlock()

		// Drain client messages, recording subscribe/unsubscribe requests.
		go func() {
			for {
				_, payload, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var msg controlMessage
				if json.Unmarshal(payload, &msg) == nil && msg.Action != "" {
					fs.mu.Lock()
					fs.controls = append(fs.controls, msg)
					fs.mu.Unlock()
				}
			}
		}()
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *feedServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *feedServer) connCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.conns)
}

func (fs *feedServer) lastConn() *websocket.Conn {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.conns) == 0 {
		return nil
	}
	return fs.conns[len(fs.conns)-1]
}

func (fs *feedServer) send(v interface{}) {
	conn := fs.lastConn()
	require.NotNil(fs.t, conn)
	require.NoError(fs.t, conn.WriteJSON(v))
}

func (fs *feedServer) controlLog() []controlMessage {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]controlMessage, len(fs.controls))
	copy(out, fs.controls)
	return out
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := New(Config{
		URL:               url,
		HeartbeatInterval: 100 * time.Millisecond,
		ReconnectDelay:    50 * time.Millisecond,
		Logger:            &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func waitConnected(t *testing.T, client *Client) {
	t.Helper()
	require.Eventually(t, client.IsConnected, 2*time.Second, 10*time.Millisecond)
}

func TestClient_ReceivesUpdates(t *testing.T) {
	server := newFeedServer(t)
	client := newTestClient(t, server.url())

	updates := make(chan domain.RateUpdate, 1)
	client.Subscribe(func(u domain.RateUpdate) { updates <- u })

	require.NoError(t, client.Start(context.Background()))
	waitConnected(t, client)

	server.send(map[string]interface{}{
		"from": "USD", "to": "KRW", "rate": 1335.5, "timestamp": "2025-06-01T12:00:00Z",
	})

	select {
	case update := <-updates:
		assert.Equal(t, domain.NewPair("USD", "KRW"), update.Pair())
		assert.InDelta(t, 1335.5, update.Rate, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}
}

func TestClient_DropsMalformedAndOutOfRangeMessages(t *testing.T) {
	server := newFeedServer(t)
	client := newTestClient(t, server.url())

	updates := make(chan domain.RateUpdate, 4)
	client.Subscribe(func(u domain.RateUpdate) { updates <- u })

	require.NoError(t, client.Start(context.Background()))
	waitConnected(t, client)

	require.NoError(t, server.lastConn().WriteMessage(websocket.TextMessage, []byte("not json")))
	server.send(map[string]interface{}{"from": "USD", "to": "KRW", "rate": -1})
	server.send(map[string]interface{}{"from": "USD", "to": "KRW", "rate": 1340.0})

	select {
	case update := <-updates:
		assert.InDelta(t, 1340.0, update.Rate, 1e-9, "only the valid message survives")
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}
	assert.Empty(t, updates)
}

func TestClient_PairSubscriptionLifecycle(t *testing.T) {
	server := newFeedServer(t)
	client := newTestClient(t, server.url())

	require.NoError(t, client.Start(context.Background()))
	waitConnected(t, client)

	pair := domain.NewPair("USD", "KRW")
	other := domain.NewPair("EUR", "USD")

	pairUpdates := make(chan domain.RateUpdate, 2)
	sub := client.SubscribePair(pair, func(u domain.RateUpdate) { pairUpdates <- u })

	require.Eventually(t, func() bool {
		log := server.controlLog()
		return len(log) == 1 && log[0].Action == "subscribe" && log[0].Pair == "USD/KRW"
	}, 2*time.Second, 10*time.Millisecond)

	// Updates for other pairs bypass the pair handler.
	server.send(map[string]interface{}{"from": other.From, "to": other.To, "rate": 1.2})
	server.send(map[string]interface{}{"from": pair.From, "to": pair.To, "rate": 1335.5})

	select {
	case update := <-pairUpdates:
		assert.Equal(t, pair, update.Pair())
	case <-time.After(2 * time.Second):
		t.Fatal("no pair update delivered")
	}

	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	require.Eventually(t, func() bool {
		log := server.controlLog()
		return len(log) == 2 && log[1].Action == "unsubscribe"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_ReconnectsAndResubscribes(t *testing.T) {
	server := newFeedServer(t)
	client := newTestClient(t, server.url())

	client.SubscribePair(domain.NewPair("USD", "KRW"), func(domain.RateUpdate) {})

	require.NoError(t, client.Start(context.Background()))
	waitConnected(t, client)
	require.Equal(t, 1, server.connCount())

	server.lastConn().Close()

	require.Eventually(t, func() bool {
		return server.connCount() == 2 && client.IsConnected()
	}, 5*time.Second, 20*time.Millisecond)

	// The replayed subscription arrives on the new connection.
	require.Eventually(t, func() bool {
		subscribes := 0
		for _, msg := range server.controlLog() {
			if msg.Action == "subscribe" {
				subscribes++
			}
		}
		return subscribes == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_CloseStopsReconnecting(t *testing.T) {
	server := newFeedServer(t)
	client := newTestClient(t, server.url())

	require.NoError(t, client.Start(context.Background()))
	waitConnected(t, client)

	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())

	count := server.connCount()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, count, server.connCount(), "closed client must not dial again")
}

func TestClient_ConcurrentSubscriptionChurn(t *testing.T) {
	server := newFeedServer(t)
	client := newTestClient(t, server.url())

	require.NoError(t, client.Start(context.Background()))
	waitConnected(t, client)

	pairs := []domain.Pair{
		domain.NewPair("USD", "KRW"),
		domain.NewPair("EUR", "USD"),
		domain.NewPair("JPY", "KRW"),
		domain.NewPair("EUR", "JPY"),
	}

	var wg sync.WaitGroup
	for _, pair := range pairs {
		wg.Add(1)
		go func(pair domain.Pair) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				sub := client.SubscribePair(pair, func(domain.RateUpdate) {})
				sub.Unsubscribe()
			}
		}(pair)
	}

	// Drop the connection mid-churn so the subscription replay overlaps the
	// subscribe/unsubscribe sends from the caller goroutines.
	time.Sleep(20 * time.Millisecond)
	if conn := server.lastConn(); conn != nil {
		conn.Close()
	}
	wg.Wait()

	require.Eventually(t, client.IsConnected, 5*time.Second, 20*time.Millisecond)
	assert.NotEmpty(t, server.controlLog())
}

func TestClient_StartTwiceFails(t *testing.T) {
	server := newFeedServer(t)
	client := newTestClient(t, server.url())

	require.NoError(t, client.Start(context.Background()))
	assert.Error(t, client.Start(context.Background()))
}
