package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcore/internal/store/domain"
	"shopcore/internal/store/port"
)

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishToConnectedCustomer(t *testing.T) {
	hub, srv := newHubServer(t)
	conn := dial(t, srv, "?customerId=7")
	require.Eventually(t, func() bool { return hub.Connected(7) },
		time.Second, 10*time.Millisecond)

	event := port.OrderEvent{
		EventID:    "evt-1",
		OrderID:    42,
		CustomerID: 7,
		Status:     domain.StatusCancelled,
		Message:    "Your order #42 has been cancelled.",
	}
	require.NoError(t, hub.Publish(context.Background(), event))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got port.OrderEvent
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, event, got)
}

func TestPublishToAbsentCustomerIsNoop(t *testing.T) {
	hub, _ := newHubServer(t)

	err := hub.Publish(context.Background(), port.OrderEvent{
		EventID:    "evt-2",
		OrderID:    1,
		CustomerID: 99,
		Status:     domain.StatusInTransit,
	})
	assert.NoError(t, err)
	assert.False(t, hub.Connected(99))
}

func TestServeWSRequiresCustomerID(t *testing.T) {
	_, srv := newHubServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
