package lock

import (
	"context"
	"rsd/internal/structures"
	"rsd/internal/testutil"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	uatomic "go.uber.org/atomic"
)

func newTestBackend(t *testing.T) *BadgerBackend {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerBackend(db)
}

func TestTryAcquire_FirstClaimWins(t *testing.T) {
	b := newTestBackend(t)

	ok, err := b.TryAcquire("poller", "node-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryAcquire("poller", "node-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryAcquire_SameHolderReacquires(t *testing.T) {
	b := newTestBackend(t)

	ok, err := b.TryAcquire("poller", "node-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.TryAcquire("poller", "node-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryAcquire_SucceedsAfterExpiry(t *testing.T) {
	b := newTestBackend(t)

	ok, err := b.TryAcquire("poller", "node-a", 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(300 * time.Millisecond)

	ok, err = b.TryAcquire("poller", "node-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease reads as missing and is claimable")
}

func TestTryAcquire_AtMostOneConcurrentWinner(t *testing.T) {
	b := newTestBackend(t)

	const claimants = 8
	var wg sync.WaitGroup
	wins := uatomic.NewInt64(0)

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			holder := string(rune('a' + n))
			ok, err := b.TryAcquire("poller", holder, time.Minute)
			assert.NoError(t, err)
			if ok {
				wins.Inc()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
}

func TestRenew_ExtendsHeldLease(t *testing.T) {
	b := newTestBackend(t)

	ok, err := b.TryAcquire("poller", "node-a", 300*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	// Keep renewing past the original TTL; the lease must stay held.
	for i := 0; i < 5; i++ {
		time.Sleep(100 * time.Millisecond)
		ok, err = b.Renew("poller", "node-a", 300*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err = b.TryAcquire("poller", "node-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenew_FailsAfterExpiry(t *testing.T) {
	b := newTestBackend(t)

	ok, err := b.TryAcquire("poller", "node-a", 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(300 * time.Millisecond)

	ok, err = b.Renew("poller", "node-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenew_FailsForForeignHolder(t *testing.T) {
	b := newTestBackend(t)

	ok, err := b.TryAcquire("poller", "node-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Renew("poller", "node-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRelease_AllowsImmediateTakeover(t *testing.T) {
	b := newTestBackend(t)

	ok, err := b.TryAcquire("poller", "node-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, b.Release("poller", "node-a"))

	ok, err = b.TryAcquire("poller", "node-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelease_IgnoresForeignLease(t *testing.T) {
	b := newTestBackend(t)

	ok, err := b.TryAcquire("poller", "node-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, b.Release("poller", "node-b"))

	ok, err = b.TryAcquire("poller", "node-c", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "release by a non-holder must not drop the lease")
}

// fakeBackend scripts acquire/renew outcomes for manager tests.
type fakeBackend struct {
	mu           sync.Mutex
	acquireSeq   []bool
	acquireCalls int
	renewSeq     []bool
	renewCalls   int
	releases     int
}

func (f *fakeBackend) TryAcquire(_, _ string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquireCalls++
	if len(f.acquireSeq) == 0 {
		return true, nil
	}
	ok := f.acquireSeq[0]
	if len(f.acquireSeq) > 1 {
		f.acquireSeq = f.acquireSeq[1:]
	}
	return ok, nil
}

func (f *fakeBackend) Renew(_, _ string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renewCalls++
	if len(f.renewSeq) == 0 {
		return true, nil
	}
	ok := f.renewSeq[0]
	if len(f.renewSeq) > 1 {
		f.renewSeq = f.renewSeq[1:]
	}
	return ok, nil
}

func (f *fakeBackend) Release(_, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	return nil
}

func managerConfig() *structures.Config {
	return &structures.Config{
		Lock: structures.LockConfig{
			Enabled:       true,
			Key:           "rsd:poller",
			TTL:           200 * time.Millisecond,
			RenewInterval: 50 * time.Millisecond,
			RetryInterval: 20 * time.Millisecond,
		},
	}
}

func TestManager_AcquireInvokesCallbackOnce(t *testing.T) {
	backend := &fakeBackend{acquireSeq: []bool{false, false, true}}
	m := NewManager(managerConfig(), &testutil.MockLogger{}, testutil.NoopMetrics{}, backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := uatomic.NewInt64(0)
	done := make(chan struct{})
	go func() {
		m.RetryAcquireLoop(ctx, func() { calls.Inc() })
		close(done)
	}()

	assert.Eventually(t, m.IsLeader, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
	assert.GreaterOrEqual(t, backend.acquireCalls, 3)

	cancel()
	<-done
	assert.Equal(t, 1, backend.releases, "cancellation releases the held lease")
}

func TestManager_LosesLeadershipOnFailedRenewal(t *testing.T) {
	backend := &fakeBackend{renewSeq: []bool{false}}
	metrics := testutil.NewCountingMetrics()
	m := NewManager(managerConfig(), &testutil.MockLogger{}, metrics, backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.RetryAcquireLoop(ctx, func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after losing the lease")
	}
	assert.False(t, m.IsLeader())
	assert.Equal(t, 0, backend.releases, "a lost lease is not ours to release")
}

func TestManager_ReleaseIsNoopWhenNotLeader(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(managerConfig(), &testutil.MockLogger{}, testutil.NoopMetrics{}, backend)

	m.Release()
	assert.Equal(t, 0, backend.releases)
}

func TestNewGate_DisabledLockIsAlwaysLeader(t *testing.T) {
	conf := &structures.Config{}
	gate := NewGate(conf, nil)

	assert.IsType(t, AlwaysLeader{}, gate)
	assert.True(t, gate.IsLeader())
}
