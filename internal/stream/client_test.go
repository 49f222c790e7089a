package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreiluca/fraudwatch/internal/common"
	"github.com/andreiluca/fraudwatch/internal/model"
)

// mockSink records everything the client forwards.
type mockSink struct {
	mu   sync.Mutex
	txns []model.Transaction
}

func (m *mockSink) Ingest(tx model.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txns = append(m.txns, tx)
	return true, nil
}

func (m *mockSink) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.txns))
	for i, tx := range m.txns {
		out[i] = tx.ID
	}
	return out
}

// sseServer serves the given frames and then holds the connection open until
// the client goes away.
func sseServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, frame := range frames {
			_, _ = fmt.Fprint(w, frame)
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
}

func TestClientDeliversNewTransactions(t *testing.T) {
	srv := sseServer(t,
		": heartbeat\n\n",
		"data: {\"type\":\"new_transaction\",\"data\":{\"transaction_id\":\"tx-1\",\"amount\":10}}\n\n",
		"data: {\"type\":\"connection_count\",\"data\":{\"count\":3}}\n\n",
		"data: this is not json\n\n",
		"data: {\"type\":\"new_transaction\"}\n\n",
		"event: message\ndata: {\"type\":\"new_transaction\",\"data\":{\"transaction_id\":\"tx-2\",\"amount\":20}}\n\n",
	)
	defer srv.Close()

	sink := &mockSink{}
	client := New(Config{URL: srv.URL, ReconnectDelay: time.Hour}, sink)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Disconnect()

	assert.Eventually(t, func() bool {
		return len(sink.ids()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Delivery order matches transport order; junk frames were discarded.
	assert.Equal(t, []string{"tx-1", "tx-2"}, sink.ids())
	assert.Equal(t, StateConnected, client.State())
}

func TestClientReconnectsAfterDelay(t *testing.T) {
	var mu sync.Mutex
	var connections []time.Time

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		connections = append(connections, time.Now())
		mu.Unlock()
		// Fail every connection to force the retry path.
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	delay := 100 * time.Millisecond
	client := New(Config{URL: srv.URL, ReconnectDelay: delay}, &mockSink{})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Disconnect()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(connections) >= 2
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	gap := connections[1].Sub(connections[0])
	mu.Unlock()
	assert.GreaterOrEqual(t, gap, delay, "reconnect must wait out the configured delay")
}

func TestClientStopsReconnectingAfterDisconnect(t *testing.T) {
	var mu sync.Mutex
	connections := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		connections++
		mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	delay := 50 * time.Millisecond
	client := New(Config{URL: srv.URL, ReconnectDelay: delay}, &mockSink{})
	require.NoError(t, client.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connections >= 1
	}, 2*time.Second, 5*time.Millisecond)

	client.Disconnect()
	assert.Equal(t, StateDisconnected, client.State())

	mu.Lock()
	after := connections
	mu.Unlock()

	// A pending reconnect timer must not fire once disconnected.
	time.Sleep(4 * delay)
	mu.Lock()
	final := connections
	mu.Unlock()
	assert.Equal(t, after, final)
}

func TestClientBoundedRetries(t *testing.T) {
	var mu sync.Mutex
	connections := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		connections++
		mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(Config{URL: srv.URL, ReconnectDelay: 10 * time.Millisecond, MaxRetries: 2}, &mockSink{})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Disconnect()

	// Initial attempt plus two retries, then the loop gives up.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connections == 3
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	final := connections
	mu.Unlock()
	assert.Equal(t, 3, final)
	assert.Equal(t, StateDisconnected, client.State())
}

func TestDisconnectIdempotent(t *testing.T) {
	client := New(Config{URL: "http://127.0.0.1:0"}, &mockSink{})

	// Never connected: must not panic or block.
	client.Disconnect()
	client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))
	client.Disconnect()
	client.Disconnect()
	assert.Equal(t, StateDisconnected, client.State())
}

func TestConnectTwiceIsAnError(t *testing.T) {
	srv := sseServer(t)
	defer srv.Close()

	client := New(Config{URL: srv.URL, ReconnectDelay: time.Hour}, &mockSink{})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Disconnect()

	assert.ErrorIs(t, client.Connect(context.Background()), common.ErrAlreadyActive)
}

func TestClientReconnectsAfterServerDrop(t *testing.T) {
	var mu sync.Mutex
	connections := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connections++
		n := connections
		mu.Unlock()

		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		if n == 1 {
			// First connection delivers one event, then drops.
			_, _ = fmt.Fprint(w, "data: {\"type\":\"new_transaction\",\"data\":{\"transaction_id\":\"before-drop\"}}\n\n")
			flusher.Flush()
			return
		}
		_, _ = fmt.Fprint(w, "data: {\"type\":\"new_transaction\",\"data\":{\"transaction_id\":\"after-drop\"}}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	sink := &mockSink{}
	client := New(Config{URL: srv.URL, ReconnectDelay: 20 * time.Millisecond}, sink)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Disconnect()

	assert.Eventually(t, func() bool {
		return len(sink.ids()) == 2
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"before-drop", "after-drop"}, sink.ids())
}
