package lock

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const leasePrefix = "lease/"

// Backend is the conditional-write-with-TTL primitive a lease rides on.
// Expiry is enforced by the backend, never by the holder: a crashed holder's
// claim simply ages out.
type Backend interface {
	TryAcquire(key, holder string, ttl time.Duration) (bool, error)
	Renew(key, holder string, ttl time.Duration) (bool, error)
	Release(key, holder string) error
}

// BadgerBackend implements the lease primitive with TTL entries. Badger hides
// expired keys from reads, so an expired lease looks exactly like a missing
// one, and transaction conflict detection arbitrates concurrent claims.
type BadgerBackend struct {
	db *badger.DB
}

func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

var errHeld = errors.New("lease held by another holder")

func leaseKey(key string) []byte {
	return []byte(leasePrefix + key)
}

func (b *BadgerBackend) TryAcquire(key, holder string, ttl time.Duration) (bool, error) {
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(leaseKey(key))
		if err == nil {
			current, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			if string(current) != holder {
				return errHeld
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		entry := badger.NewEntry(leaseKey(key), []byte(holder)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if errors.Is(err, errHeld) || errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *BadgerBackend) Renew(key, holder string, ttl time.Duration) (bool, error) {
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(leaseKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			// Expired before we renewed: leadership is already gone.
			return errHeld
		}
		if err != nil {
			return err
		}
		current, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(current) != holder {
			return errHeld
		}
		entry := badger.NewEntry(leaseKey(key), []byte(holder)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if errors.Is(err, errHeld) || errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *BadgerBackend) Release(key, holder string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(leaseKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		current, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(current) != holder {
			return nil
		}
		return txn.Delete(leaseKey(key))
	})
}

var _ Backend = (*BadgerBackend)(nil)
