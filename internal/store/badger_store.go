package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"rsd/internal/models"
	"rsd/internal/providers"
	"rsd/internal/structures"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
)

// BadgerStore keeps latest snapshots and the append-only history log in a
// single embedded badger database. Latest keys hold plain JSON snapshots;
// history keys hold zstd-compressed entries ordered newest-first.
type BadgerStore struct {
	db           *badger.DB
	compressor   Compressor
	logger       providers.Logger
	defaultLimit int
	maxLimit     int
}

func NewBadgerStore(conf *structures.Config, logger providers.Logger, compressor Compressor) (*BadgerStore, error) {
	var opts badger.Options
	if conf.Storage.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(conf.Storage.Dir, 0750); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", conf.Storage.Dir, err)
		}
		opts = badger.DefaultOptions(conf.Storage.Dir)
	}
	opts = opts.WithSyncWrites(conf.Storage.SyncWrites).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	defaultLimit := conf.Storage.HistoryLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultHistoryLimit
	}
	maxLimit := conf.Storage.HistoryMaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxHistoryLimit
	}

	return &BadgerStore{
		db:           db,
		compressor:   compressor,
		logger:       logger,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// DB exposes the underlying database for collaborators that share the same
// engine (the lease backend rides the store's badger instance).
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

// RunGC reclaims value-log space on a timer until ctx is cancelled. Badger
// only rewrites a log file when at least half of it is stale, so most ticks
// are no-ops. In-memory databases have no value log and skip GC entirely.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if s.db.Opts().InMemory || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) UpsertLatest(snap *models.Snapshot) error {
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(latestKey(snap.Provider, snap.Region), val)
	})
}

func (s *BadgerStore) GetLatest(provider string, region models.Region) (*models.Snapshot, error) {
	var snap models.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey(provider, region))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *BadgerStore) GetAllLatest() ([]*models.Snapshot, error) {
	var snaps []*models.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(latestPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var snap models.Snapshot
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			})
			if err != nil {
				return err
			}
			snaps = append(snaps, &snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Provider != snaps[j].Provider {
			return snaps[i].Provider < snaps[j].Provider
		}
		return snaps[i].Region < snaps[j].Region
	})
	return snaps, nil
}

func (s *BadgerStore) AppendHistory(entry *models.HistoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	val, err := s.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("compress history entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(historyKey(entry.Provider, entry.Region, entry.CreatedAt), val)
	})
}

func (s *BadgerStore) QueryHistory(f HistoryFilter) ([]*models.HistoryEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	prefix := []byte(historyPrefix)
	if f.hasSource() {
		prefix = historySourcePrefix(f.Provider, f.Region)
	}

	var entries []*models.HistoryEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			entry, err := s.decodeHistory(it.Item())
			if err != nil {
				return err
			}
			if !f.To.IsZero() && entry.CreatedAt.After(f.To) {
				continue
			}
			if !f.From.IsZero() && entry.CreatedAt.Before(f.From) {
				// Keys under one source prefix descend in time, so
				// everything past this point is older still.
				if f.hasSource() {
					break
				}
				continue
			}
			entries = append(entries, entry)
			if f.hasSource() && len(entries) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !f.hasSource() {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		})
		if len(entries) > limit {
			entries = entries[:limit]
		}
	}
	return entries, nil
}

func (s *BadgerStore) decodeHistory(item *badger.Item) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	err := item.Value(func(val []byte) error {
		raw, err := s.compressor.Decompress(val)
		if err != nil {
			return fmt.Errorf("decompress history entry %s: %w", item.Key(), err)
		}
		return json.Unmarshal(raw, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

var _ MetricStore = (*BadgerStore)(nil)
