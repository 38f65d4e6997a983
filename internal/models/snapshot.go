package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	json "github.com/goccy/go-json"
)

// Snapshot is the latest known payload for a source. At most one Snapshot
// exists per (provider, region); it is overwritten in place on change.
type Snapshot struct {
	Provider    string          `json:"provider"`
	Region      Region          `json:"region"`
	Payload     json.RawMessage `json:"payload"`
	Fingerprint string          `json:"fingerprint"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HistoryEntry is an immutable record appended every time a Snapshot's
// fingerprint changes. Entries are never mutated or deleted by the daemon.
type HistoryEntry struct {
	Provider    string          `json:"provider"`
	Region      Region          `json:"region"`
	Payload     json.RawMessage `json:"payload"`
	Fingerprint string          `json:"fingerprint"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ChangeEvent is the single event shape both notifier strategies produce.
type ChangeEvent struct {
	Provider    string          `json:"provider"`
	Region      Region          `json:"region"`
	Payload     json.RawMessage `json:"payload"`
	Fingerprint string          `json:"fingerprint"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (e *ChangeEvent) SourceKey() string {
	return e.Provider + "/" + string(e.Region)
}

// CanonicalPayload re-serializes raw JSON into a canonical byte form so two
// payloads that differ only in whitespace or key order fingerprint equally.
func CanonicalPayload(raw []byte) (json.RawMessage, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Fingerprint returns the hex sha256 digest of the canonical payload bytes.
func Fingerprint(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
