package gateway

import (
	"context"
	"rsd/internal/models"
	"rsd/internal/providers"
	"rsd/internal/structures"

	json "github.com/goccy/go-json"
	"go.uber.org/atomic"
)

type hubOp int

const (
	opRegister hubOp = iota
	opUnregister
	opSubscribe
	opUnsubscribe
)

type hubRequest struct {
	op     hubOp
	client *Client
	region models.Region
}

// Hub owns every subscription. All membership changes and event deliveries
// flow through two bounded channels drained by a single goroutine, which is
// what keeps per-region delivery ordered without any locking in the data
// path. Clients that cannot keep up with their send buffer are dropped.
type Hub struct {
	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	requests chan hubRequest
	events   chan *models.ChangeEvent

	clients map[*Client]struct{}
	subs    map[models.Region]map[*Client]struct{}

	clientCount *atomic.Int64
}

func NewHub(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) *Hub {
	return &Hub{
		logger:      logger,
		metrics:     metrics,
		requests:    make(chan hubRequest, conf.Gateway.EventBuffer),
		events:      make(chan *models.ChangeEvent, conf.Gateway.EventBuffer),
		clients:     make(map[*Client]struct{}),
		subs:        make(map[models.Region]map[*Client]struct{}),
		clientCount: atomic.NewInt64(0),
	}
}

// Run drains the hub channels until ctx is cancelled. Must be running before
// any client connects.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.close()
			}
			return
		case req := <-h.requests:
			h.handle(req)
		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

// Publish enqueues a change event for delivery. Never blocks: when the event
// buffer is full the event is dropped and logged, making backpressure
// visible instead of stalling the notifier.
func (h *Hub) Publish(ev *models.ChangeEvent) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warnf(providers.TypeSocket, "Event buffer full, dropping update for %s", ev.SourceKey())
	}
}

func (h *Hub) Register(c *Client) {
	h.requests <- hubRequest{op: opRegister, client: c}
}

func (h *Hub) Unregister(c *Client) {
	h.requests <- hubRequest{op: opUnregister, client: c}
}

func (h *Hub) Subscribe(c *Client, region models.Region) {
	h.requests <- hubRequest{op: opSubscribe, client: c, region: region}
}

func (h *Hub) Unsubscribe(c *Client, region models.Region) {
	h.requests <- hubRequest{op: opUnsubscribe, client: c, region: region}
}

func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

func (h *Hub) handle(req hubRequest) {
	switch req.op {
	case opRegister:
		h.clients[req.client] = struct{}{}
		h.clientCount.Store(int64(len(h.clients)))
		h.metrics.SetConnectedClients(len(h.clients))
		h.logger.Infof(providers.TypeSocket, "Client %s connected (%d total)", req.client.ID(), len(h.clients))

	case opUnregister:
		if _, ok := h.clients[req.client]; !ok {
			return
		}
		delete(h.clients, req.client)
		for region, members := range h.subs {
			if _, ok := members[req.client]; ok {
				delete(members, req.client)
				h.metrics.SetSubscriptions(string(region), len(members))
			}
		}
		h.clientCount.Store(int64(len(h.clients)))
		h.metrics.SetConnectedClients(len(h.clients))
		req.client.close()
		h.logger.Infof(providers.TypeSocket, "Client %s disconnected (%d total)", req.client.ID(), len(h.clients))

	case opSubscribe:
		members, ok := h.subs[req.region]
		if !ok {
			members = make(map[*Client]struct{})
			h.subs[req.region] = members
		}
		// Idempotent: subscribing twice equals subscribing once.
		members[req.client] = struct{}{}
		h.metrics.SetSubscriptions(string(req.region), len(members))
		req.client.enqueueJSON(AckResponse{Event: EventSubscribed, Region: string(req.region)})

	case opUnsubscribe:
		if members, ok := h.subs[req.region]; ok {
			delete(members, req.client)
			h.metrics.SetSubscriptions(string(req.region), len(members))
		}
		req.client.enqueueJSON(AckResponse{Event: EventUnsubscribed, Region: string(req.region)})
	}
}

// deliver fans an event out to the clients subscribed to its region only.
func (h *Hub) deliver(ev *models.ChangeEvent) {
	members := h.subs[ev.Region]
	if len(members) == 0 {
		return
	}

	msg, err := json.Marshal(UpdateResponse{
		Event:     EventUpdate,
		Source:    SourceRef{Provider: ev.Provider, Region: ev.Region},
		Payload:   json.RawMessage(ev.Payload),
		Timestamp: ev.Timestamp,
	})
	if err != nil {
		h.logger.Errorf(providers.TypeSocket, "Encoding update for %s failed: %s", ev.SourceKey(), err)
		return
	}

	for c := range members {
		if c.enqueue(msg) {
			h.metrics.IncEventsDelivered(string(ev.Region))
		} else {
			h.logger.Warnf(providers.TypeSocket, "Client %s send buffer full, dropping connection", c.ID())
			go h.Unregister(c)
		}
	}
}
