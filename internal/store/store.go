package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"rsd/internal/models"
	"time"
)

var ErrNotFound = errors.New("snapshot not found")

const (
	latestPrefix  = "latest/"
	historyPrefix = "hist/"

	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// HistoryFilter narrows a history query. Provider and Region are applied
// together (a source filter) or not at all; From/To are inclusive bounds.
type HistoryFilter struct {
	Provider string
	Region   models.Region
	From     time.Time
	To       time.Time
	Limit    int
}

func (f HistoryFilter) hasSource() bool {
	return f.Provider != "" && f.Region != ""
}

type MetricStore interface {
	UpsertLatest(snap *models.Snapshot) error
	GetLatest(provider string, region models.Region) (*models.Snapshot, error)
	GetAllLatest() ([]*models.Snapshot, error)
	AppendHistory(entry *models.HistoryEntry) error
	QueryHistory(f HistoryFilter) ([]*models.HistoryEntry, error)
	Close() error
}

// ChangeFeed is the optional mutation-feed capability of a store. The
// notifier probes for it at startup; handler is invoked once per latest-key
// mutation until ctx is cancelled.
type ChangeFeed interface {
	Feed(ctx context.Context, handler func(*models.ChangeEvent)) error
}

func latestKey(provider string, region models.Region) []byte {
	return []byte(latestPrefix + provider + "/" + string(region))
}

// historyKey orders entries newest-first under their source prefix: the
// timestamp component is inverted so ascending key order is descending time.
func historyKey(provider string, region models.Region, at time.Time) []byte {
	inv := uint64(math.MaxInt64 - at.UnixNano())
	return []byte(fmt.Sprintf("%s%s/%s/%020d", historyPrefix, provider, region, inv))
}

func historySourcePrefix(provider string, region models.Region) []byte {
	return []byte(historyPrefix + provider + "/" + string(region) + "/")
}
