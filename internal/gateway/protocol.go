package gateway

import (
	"rsd/internal/models"
	"time"
)

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionGetSnapshot = "get_snapshot"
	ActionGetHistory  = "get_history"
)

const (
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventSnapshot     = "snapshot"
	EventHistory      = "history"
	EventUpdate       = "update"
	EventError        = "error"
)

// Request is every inbound client message. Fields beyond Action are
// interpreted per action; From/To are RFC3339 timestamps.
type Request struct {
	Action   string `json:"action"`
	Region   string `json:"region,omitempty"`
	Provider string `json:"provider,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type SourceRef struct {
	Provider string        `json:"provider"`
	Region   models.Region `json:"region"`
}

type AckResponse struct {
	Event  string `json:"event"`
	Region string `json:"region"`
}

type UpdateResponse struct {
	Event     string      `json:"event"`
	Source    SourceRef   `json:"source"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type SnapshotItem struct {
	Source    SourceRef   `json:"source"`
	Payload   interface{} `json:"payload"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type SnapshotResponse struct {
	Event  string         `json:"event"`
	Items  []SnapshotItem `json:"items"`
	Count  int            `json:"count"`
	Source *SourceRef     `json:"source,omitempty"`
}

type HistoryItem struct {
	Source    SourceRef   `json:"source"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}

type HistoryResponse struct {
	Event  string        `json:"event"`
	Source *SourceRef    `json:"source,omitempty"`
	Items  []HistoryItem `json:"items"`
	Count  int           `json:"count"`
}

type ErrorResponse struct {
	Event        string   `json:"event"`
	Message      string   `json:"message"`
	ValidRegions []string `json:"valid_regions,omitempty"`
	ValidActions []string `json:"valid_actions,omitempty"`
}
