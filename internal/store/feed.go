package store

import (
	"context"
	"errors"
	"rsd/internal/models"
	"rsd/internal/providers"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	json "github.com/goccy/go-json"
)

// Feed subscribes to mutations of the latest-snapshot keys and invokes
// handler with the decoded change event. Blocks until ctx is cancelled.
// A malformed value is logged and skipped; it never stops the feed.
func (s *BadgerStore) Feed(ctx context.Context, handler func(*models.ChangeEvent)) error {
	matches := []pb.Match{{Prefix: []byte(latestPrefix)}}

	err := s.db.Subscribe(ctx, func(kvs *badger.KVList) error {
		for _, kv := range kvs.Kv {
			if len(kv.Value) == 0 {
				// Deletions carry no value and are not snapshot changes.
				continue
			}
			var snap models.Snapshot
			if err := json.Unmarshal(kv.Value, &snap); err != nil {
				s.logger.Warnf(providers.TypeFeed, "Skipping malformed feed value for %s: %s", kv.Key, err)
				continue
			}
			if snap.Provider == "" || snap.Region == "" || len(snap.Payload) == 0 {
				s.logger.Warnf(providers.TypeFeed, "Skipping incomplete feed value for %s", kv.Key)
				continue
			}
			handler(&models.ChangeEvent{
				Provider:    snap.Provider,
				Region:      snap.Region,
				Payload:     snap.Payload,
				Fingerprint: snap.Fingerprint,
				Timestamp:   snap.UpdatedAt,
			})
		}
		return nil
	}, matches)

	if err != nil && !errors.Is(err, context.Canceled) && !isClosedErr(err) {
		return err
	}
	return nil
}

func isClosedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "closed")
}

var _ ChangeFeed = (*BadgerStore)(nil)
