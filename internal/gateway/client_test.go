package gateway

import (
	"net/http"
	"net/http/httptest"
	"rsd/internal/models"
	"rsd/internal/store"
	"rsd/internal/testutil"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestClient spins up a hub plus a websocket endpoint backed by svc and
// returns a connected client-side socket.
func dialTestClient(t *testing.T, svc *testutil.MockStatusService) (*websocket.Conn, *Hub) {
	t.Helper()
	conf := gatewayConfig()
	hub := newRunningHub(t, conf)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conf, &testutil.MockLogger{}, svc, hub, conn)
		go client.Serve()
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, hub
}

func sendRequest(t *testing.T, conn *websocket.Conn, req Request) {
	t.Helper()
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func readResponse(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestClient_SubscribeFlow(t *testing.T) {
	conn, hub := dialTestClient(t, &testutil.MockStatusService{})

	sendRequest(t, conn, Request{Action: ActionSubscribe, Region: "us-east"})
	msg := readResponse(t, conn)
	assert.Equal(t, EventSubscribed, msg["event"])
	assert.Equal(t, "us-east", msg["region"])

	hub.Publish(changeEvent("aws", models.RegionUSEast))
	msg = readResponse(t, conn)
	assert.Equal(t, EventUpdate, msg["event"])
	payload := msg["payload"].(map[string]interface{})
	assert.Equal(t, "degraded", payload["status"])
}

func TestClient_SubscribeUnknownRegion(t *testing.T) {
	conn, _ := dialTestClient(t, &testutil.MockStatusService{})

	sendRequest(t, conn, Request{Action: ActionSubscribe, Region: "mars-north"})
	msg := readResponse(t, conn)
	assert.Equal(t, EventError, msg["event"])
	assert.Contains(t, msg["message"], "mars-north")
	assert.Len(t, msg["valid_regions"], len(models.AllRegions))
}

func TestClient_UnknownAction(t *testing.T) {
	conn, _ := dialTestClient(t, &testutil.MockStatusService{})

	sendRequest(t, conn, Request{Action: "broadcast"})
	msg := readResponse(t, conn)
	assert.Equal(t, EventError, msg["event"])
	assert.NotEmpty(t, msg["valid_actions"])
}

func TestClient_MalformedRequestKeepsConnection(t *testing.T) {
	conn, _ := dialTestClient(t, &testutil.MockStatusService{})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := readResponse(t, conn)
	assert.Equal(t, EventError, msg["event"])

	// The connection survives a malformed request.
	sendRequest(t, conn, Request{Action: ActionSubscribe, Region: "eu-west"})
	msg = readResponse(t, conn)
	assert.Equal(t, EventSubscribed, msg["event"])
}

func TestClient_GetSnapshotSingleSource(t *testing.T) {
	svc := &testutil.MockStatusService{
		Snapshots: map[string]*models.Snapshot{
			"aws/us-east": {
				Provider:    "aws",
				Region:      models.RegionUSEast,
				Payload:     []byte(`{"status":"operational"}`),
				Fingerprint: "fp",
				UpdatedAt:   time.Now().UTC(),
			},
		},
	}
	conn, _ := dialTestClient(t, svc)

	sendRequest(t, conn, Request{Action: ActionGetSnapshot, Provider: "aws", Region: "us-east"})
	msg := readResponse(t, conn)
	assert.Equal(t, EventSnapshot, msg["event"])
	assert.Equal(t, float64(1), msg["count"])
	items := msg["items"].([]interface{})
	require.Len(t, items, 1)
}

func TestClient_GetSnapshotUnknownSource(t *testing.T) {
	conn, _ := dialTestClient(t, &testutil.MockStatusService{})

	sendRequest(t, conn, Request{Action: ActionGetSnapshot, Provider: "aws", Region: "us-east"})
	msg := readResponse(t, conn)
	assert.Equal(t, EventError, msg["event"])
}

func TestClient_GetSnapshotRequiresFullSourcePair(t *testing.T) {
	conn, _ := dialTestClient(t, &testutil.MockStatusService{})

	sendRequest(t, conn, Request{Action: ActionGetSnapshot, Provider: "aws"})
	msg := readResponse(t, conn)
	assert.Equal(t, EventError, msg["event"])
	assert.Contains(t, msg["message"], "together")
}

func TestClient_GetHistory(t *testing.T) {
	svc := &testutil.MockStatusService{
		History: []*models.HistoryEntry{
			{Provider: "aws", Region: models.RegionUSEast, Payload: []byte(`{"a":1}`), CreatedAt: time.Now().UTC()},
			{Provider: "aws", Region: models.RegionUSEast, Payload: []byte(`{"a":2}`), CreatedAt: time.Now().UTC().Add(-time.Minute)},
		},
	}
	conn, _ := dialTestClient(t, svc)

	sendRequest(t, conn, Request{Action: ActionGetHistory, Provider: "aws", Region: "us-east", Limit: 10})
	msg := readResponse(t, conn)
	assert.Equal(t, EventHistory, msg["event"])
	assert.Equal(t, float64(2), msg["count"])
}

func TestClient_GetHistoryBadTimestamp(t *testing.T) {
	conn, _ := dialTestClient(t, &testutil.MockStatusService{})

	sendRequest(t, conn, Request{Action: ActionGetHistory, From: "yesterday"})
	msg := readResponse(t, conn)
	assert.Equal(t, EventError, msg["event"])
	assert.Contains(t, msg["message"], "RFC3339")
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	conn, hub := dialTestClient(t, &testutil.MockStatusService{})

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_SupersededHistoryReplyDiscarded(t *testing.T) {
	svc := &testutil.MockStatusService{}
	conf := gatewayConfig()
	hub := newRunningHub(t, conf)
	c := NewClient(conf, &testutil.MockLogger{}, svc, hub, nil)

	// A newer request bumped the sequence; the older lookup's reply must
	// be dropped on completion.
	c.histSeq.Store(2)
	c.runHistory(1, store.HistoryFilter{}, nil)

	select {
	case raw := <-c.send:
		t.Fatalf("superseded history reply was delivered: %s", raw)
	case <-time.After(200 * time.Millisecond):
	}

	c.runHistory(2, store.HistoryFilter{}, nil)
	msg := readMessage(t, c)
	assert.Equal(t, EventHistory, msg["event"])
}
