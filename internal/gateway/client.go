package gateway

import (
	"fmt"
	"rsd/internal/models"
	"rsd/internal/providers"
	"rsd/internal/services"
	"rsd/internal/store"
	"rsd/internal/structures"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

const maxRequestSize = 4 << 10 // 4 KB

var validActions = []string{ActionSubscribe, ActionUnsubscribe, ActionGetSnapshot, ActionGetHistory}

// Client is one websocket connection. The read pump dispatches requests, the
// write pump drains the send buffer; the hub is the only other writer into
// that buffer. History lookups run off the read loop and are superseded by
// any newer history request from the same client.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	svc    services.StatusServiceInterface
	logger providers.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	histSeq      *atomic.Uint64
	pingInterval time.Duration
	writeTimeout time.Duration
}

func NewClient(conf *structures.Config, logger providers.Logger, svc services.StatusServiceInterface, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:           uuid.NewString(),
		hub:          hub,
		conn:         conn,
		svc:          svc,
		logger:       logger,
		send:         make(chan []byte, conf.Gateway.SendBuffer),
		done:         make(chan struct{}),
		histSeq:      atomic.NewUint64(0),
		pingInterval: conf.Gateway.PingInterval,
		writeTimeout: conf.Gateway.WriteTimeout,
	}
}

func (c *Client) ID() string {
	return c.id
}

// Serve registers the client and blocks until it disconnects.
func (c *Client) Serve() {
	c.hub.Register(c)
	go c.writePump()
	c.readPump()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// enqueue hands a pre-encoded message to the write pump without blocking.
// Returns false when the client is gone or cannot keep up.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) enqueueJSON(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		c.logger.Errorf(providers.TypeSocket, "Encoding response for client %s failed: %s", c.id, err)
		return
	}
	c.enqueue(msg)
}

func (c *Client) sendError(message string, validRegions bool) {
	resp := ErrorResponse{Event: EventError, Message: message}
	if validRegions {
		resp.ValidRegions = models.RegionNames()
	}
	c.enqueueJSON(resp)
}

func (c *Client) readPump() {
	defer c.hub.Unregister(c)
	c.conn.SetReadLimit(maxRequestSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			c.sendError("malformed request: "+err.Error(), false)
			continue
		}
		c.dispatch(&req)
	}
}

func (c *Client) dispatch(req *Request) {
	switch req.Action {
	case ActionSubscribe, ActionUnsubscribe:
		region, ok := models.ParseRegion(req.Region)
		if !ok {
			c.sendError(fmt.Sprintf("unknown region %q", req.Region), true)
			return
		}
		if req.Action == ActionSubscribe {
			c.hub.Subscribe(c, region)
		} else {
			c.hub.Unsubscribe(c, region)
		}

	case ActionGetSnapshot:
		c.handleGetSnapshot(req)

	case ActionGetHistory:
		c.handleGetHistory(req)

	default:
		c.enqueueJSON(ErrorResponse{
			Event:        EventError,
			Message:      fmt.Sprintf("unknown action %q", req.Action),
			ValidActions: validActions,
		})
	}
}

// sourceFilter extracts the optional source selector: either both provider
// and region are given, or neither.
func (c *Client) sourceFilter(req *Request) (provider string, region models.Region, hasSource bool, err error) {
	if req.Provider == "" && req.Region == "" {
		return "", "", false, nil
	}
	if req.Provider == "" || req.Region == "" {
		return "", "", false, fmt.Errorf("provider and region must be given together")
	}
	region, ok := models.ParseRegion(req.Region)
	if !ok {
		return "", "", false, fmt.Errorf("unknown region %q", req.Region)
	}
	return req.Provider, region, true, nil
}

func (c *Client) handleGetSnapshot(req *Request) {
	provider, region, hasSource, err := c.sourceFilter(req)
	if err != nil {
		c.sendError(err.Error(), req.Region != "")
		return
	}

	if hasSource {
		snap, err := c.svc.GetSnapshot(provider, region)
		if err == store.ErrNotFound {
			c.sendError(fmt.Sprintf("no snapshot for %s/%s", provider, region), false)
			return
		}
		if err != nil {
			c.sendError("snapshot lookup failed", false)
			return
		}
		src := SourceRef{Provider: snap.Provider, Region: snap.Region}
		c.enqueueJSON(SnapshotResponse{
			Event:  EventSnapshot,
			Source: &src,
			Items:  []SnapshotItem{snapshotItem(snap)},
			Count:  1,
		})
		return
	}

	snaps, err := c.svc.GetAllSnapshots()
	if err != nil {
		c.sendError("snapshot lookup failed", false)
		return
	}
	items := make([]SnapshotItem, 0, len(snaps))
	for _, snap := range snaps {
		items = append(items, snapshotItem(snap))
	}
	c.enqueueJSON(SnapshotResponse{Event: EventSnapshot, Items: items, Count: len(items)})
}

func (c *Client) handleGetHistory(req *Request) {
	provider, region, hasSource, err := c.sourceFilter(req)
	if err != nil {
		c.sendError(err.Error(), req.Region != "")
		return
	}

	filter := store.HistoryFilter{Limit: req.Limit}
	if hasSource {
		filter.Provider = provider
		filter.Region = region
	}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			c.sendError("invalid 'from' timestamp, want RFC3339", false)
			return
		}
		filter.From = from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			c.sendError("invalid 'to' timestamp, want RFC3339", false)
			return
		}
		filter.To = to
	}

	var src *SourceRef
	if hasSource {
		src = &SourceRef{Provider: provider, Region: region}
	}

	// Most-recent-request-wins: a newer history request invalidates the
	// reply of any still-running one.
	seq := c.histSeq.Inc()
	go c.runHistory(seq, filter, src)
}

func (c *Client) runHistory(seq uint64, filter store.HistoryFilter, src *SourceRef) {
	entries, err := c.svc.GetHistory(filter)
	if c.histSeq.Load() != seq {
		return
	}
	if err != nil {
		c.sendError("history query failed", false)
		return
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{
			Source:    SourceRef{Provider: e.Provider, Region: e.Region},
			Payload:   json.RawMessage(e.Payload),
			CreatedAt: e.CreatedAt,
		})
	}
	c.enqueueJSON(HistoryResponse{Event: EventHistory, Source: src, Items: items, Count: len(items)})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func snapshotItem(snap *models.Snapshot) SnapshotItem {
	return SnapshotItem{
		Source:    SourceRef{Provider: snap.Provider, Region: snap.Region},
		Payload:   json.RawMessage(snap.Payload),
		UpdatedAt: snap.UpdatedAt,
	}
}
