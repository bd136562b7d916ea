package web

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
	"go.uber.org/zap"

	"brandsim/server/internal/models"
)

func TestGameFeedStreamsNewPosts(t *testing.T) {
	s := newTestServer(t)
	gameID := s.seedGame("u1")

	srv := httptest.NewServer(s.handler)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/game/feed?gameId=" + gameID + "&token=" + signToken(t, "u1", testSecret, time.Hour)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := s.do(http.MethodPost, "/api/post", "u1", map[string]interface{}{"gameId": gameID, "day": 0, "text": "live"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type   string        `json:"type"`
		GameID string        `json:"gameId"`
		Posts  []models.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "posts", event.Type)
	assert.Equal(t, gameID, event.GameID)
	require.Len(t, event.Posts, 2)
	assert.Equal(t, "live", event.Posts[0].Text)
	assert.Equal(t, 1, event.Posts[1].Day)
}

func TestGameFeedRequiresTokenAndOwnership(t *testing.T) {
	s := newTestServer(t)
	gameID := s.seedGame("u1")

	rec := s.do(http.MethodGet, "/api/game/feed?gameId="+gameID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/game/feed?gameId="+gameID+"&token="+signToken(t, "u2", testSecret, time.Hour), nil)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://app.example")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}

func newFeedServer(t *testing.T, h *PostHub) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeFeed(w, r, "g1")
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHubUnregisterAfterRegisterLeavesNoClient(t *testing.T) {
	h := NewPostHub([]string{"*"}, zap.NewNop(), nil)
	client := &feedClient{id: "c1", gameID: "g1", send: make(chan []byte, 1), hub: h}

	require.True(t, h.registerClient(client))
	h.unregisterClient(client)
	h.unregisterClient(client)

	assert.Equal(t, 0, h.ClientCount())
	_, open := <-client.send
	assert.False(t, open)
}

func TestHubDropsSocketClosedRightAfterUpgrade(t *testing.T) {
	h := NewPostHub([]string{"*"}, zap.NewNop(), nil)
	wsURL := newFeedServer(t, h)

	for i := 0; i < 20; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRefusesFeedsAfterShutdown(t *testing.T) {
	h := NewPostHub([]string{"*"}, zap.NewNop(), nil)
	wsURL := newFeedServer(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-stopped
	assert.Equal(t, 0, h.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived), "got %v", err)

	late, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = late.Close() })
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, h.ClientCount())
}
