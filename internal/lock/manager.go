package lock

import (
	"context"
	"os"
	"rsd/internal/providers"
	"rsd/internal/store"
	"rsd/internal/structures"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Gate answers whether this instance may perform side-effecting polls right
// now. Callers must consult it before every write, not only at startup.
type Gate interface {
	IsLeader() bool
}

// AlwaysLeader is the gate for single-instance deployments with no lock
// backend configured.
type AlwaysLeader struct{}

func (AlwaysLeader) IsLeader() bool { return true }

// Manager owns one lease: it acquires with retries, renews while held, and
// drops leadership on the first failed renewal. Loss is only observed on
// renewal, so the window between actual expiry and noticing it is bounded
// by one renew interval.
type Manager struct {
	backend Backend
	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	key    string
	holder string
	ttl    time.Duration
	renew  time.Duration
	retry  time.Duration

	leader *atomic.Bool
}

func NewManager(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, backend Backend) *Manager {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "rsd"
	}
	return &Manager{
		backend: backend,
		logger:  logger,
		metrics: metrics,
		key:     conf.Lock.Key,
		holder:  hostname + "-" + uuid.NewString()[:8],
		ttl:     conf.Lock.TTL,
		renew:   conf.Lock.RenewInterval,
		retry:   conf.Lock.RetryInterval,
		leader:  atomic.NewBool(false),
	}
}

// NewManagerFromStore wires the lease onto the metric store's engine.
// Returns nil when the lock is disabled.
func NewManagerFromStore(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, st *store.BadgerStore) *Manager {
	if !conf.Lock.Enabled {
		return nil
	}
	return NewManager(conf, logger, metrics, NewBadgerBackend(st.DB()))
}

// NewGate returns the poller's leadership gate for this deployment.
func NewGate(conf *structures.Config, m *Manager) Gate {
	if !conf.Lock.Enabled || m == nil {
		return AlwaysLeader{}
	}
	return m
}

func (m *Manager) IsLeader() bool {
	return m.leader.Load()
}

func (m *Manager) Holder() string {
	return m.holder
}

// RetryAcquireLoop attempts acquisition until it succeeds, invokes onAcquired
// exactly once, then renews until the lease is lost or ctx is cancelled.
// Backend errors never escape the loop; they back off and retry. After a
// loss the loop returns without re-invoking the callback; loss is reported
// through logs and the leader gauge only.
func (m *Manager) RetryAcquireLoop(ctx context.Context, onAcquired func()) {
	backoff := m.retry

	for {
		ok, err := m.backend.TryAcquire(m.key, m.holder, m.ttl)
		if err != nil {
			m.logger.Warnf(providers.TypeLock, "Lease acquire attempt failed: %s", err)
			backoff = minDuration(backoff*2, m.ttl)
		} else if ok {
			break
		} else {
			backoff = m.retry
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}

	m.logger.Infof(providers.TypeLock, "Acquired lease %q as %s (ttl %s)", m.key, m.holder, m.ttl)
	m.leader.Store(true)
	m.metrics.SetLeader(true)
	onAcquired()

	ticker := time.NewTicker(m.renew)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Release()
			return
		case <-ticker.C:
			ok, err := m.backend.Renew(m.key, m.holder, m.ttl)
			if err != nil {
				m.logger.Warnf(providers.TypeLock, "Lease renewal error: %s", err)
				continue
			}
			if !ok {
				m.logger.Warnf(providers.TypeLock, "Lost lease %q; polling stops until restart", m.key)
				m.leader.Store(false)
				m.metrics.SetLeader(false)
				return
			}
		}
	}
}

// Release gives the lease up explicitly on clean shutdown.
func (m *Manager) Release() {
	if !m.leader.Swap(false) {
		return
	}
	m.metrics.SetLeader(false)
	if err := m.backend.Release(m.key, m.holder); err != nil {
		m.logger.Warnf(providers.TypeLock, "Lease release failed: %s", err)
		return
	}
	m.logger.Infof(providers.TypeLock, "Released lease %q", m.key)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
