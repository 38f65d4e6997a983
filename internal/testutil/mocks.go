package testutil

import (
	"context"
	"rsd/internal/models"
	"rsd/internal/providers"
	"rsd/internal/store"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Entries returns a copy of recorded log entries.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(m.Logs))
	copy(out, m.Logs)
	return out
}

// MockStatusService implements services.StatusServiceInterface with
// injectable data and recorded calls.
type MockStatusService struct {
	mu           sync.Mutex
	RecordCalls  []RecordCall
	RecordResult *models.ChangeEvent
	RecordErr    error
	Snapshots    map[string]*models.Snapshot // key: "provider/region"
	SnapshotErr  error
	History      []*models.HistoryEntry
	HistoryCalls []store.HistoryFilter
	HistoryErr   error
}

type RecordCall struct {
	Source  models.Source
	Payload []byte
}

func (m *MockStatusService) RecordObservation(src models.Source, payload []byte) (*models.ChangeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordCalls = append(m.RecordCalls, RecordCall{Source: src, Payload: payload})
	return m.RecordResult, m.RecordErr
}

func (m *MockStatusService) GetSnapshot(provider string, region models.Region) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	snap, ok := m.Snapshots[provider+"/"+string(region)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

func (m *MockStatusService) GetAllSnapshots() ([]*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	out := make([]*models.Snapshot, 0, len(m.Snapshots))
	for _, snap := range m.Snapshots {
		out = append(out, snap)
	}
	return out, nil
}

func (m *MockStatusService) GetHistory(f store.HistoryFilter) ([]*models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HistoryCalls = append(m.HistoryCalls, f)
	return m.History, m.HistoryErr
}

// RecordCount returns how many observations were recorded.
func (m *MockStatusService) RecordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordCalls)
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockNotifier implements notifier.Notifier and records emitted events.
type MockNotifier struct {
	mu      sync.Mutex
	Started bool
	Events  []*models.ChangeEvent
}

func (m *MockNotifier) Start(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = true
}

func (m *MockNotifier) Emit(ev *models.ChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
}

func (m *MockNotifier) Mode() string { return "direct" }

func (m *MockNotifier) Emitted() []*models.ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ChangeEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

// MockSink implements notifier.Sink and records published events.
type MockSink struct {
	mu     sync.Mutex
	Events []*models.ChangeEvent
}

func (m *MockSink) Publish(ev *models.ChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
}

func (m *MockSink) Published() []*models.ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ChangeEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

// MockGate implements lock.Gate with a switchable answer.
type MockGate struct {
	mu     sync.Mutex
	Leader bool
}

func (m *MockGate) IsLeader() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Leader
}

func (m *MockGate) SetLeader(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Leader = v
}

// NoopMetrics implements providers.MetricsProviderInterface and discards
// every observation. Tests that assert on metrics use CountingMetrics.
type NoopMetrics struct{}

func (NoopMetrics) IncRequestsTotal(string, int)                      {}
func (NoopMetrics) ObserveRequestDuration(string, time.Duration)      {}
func (NoopMetrics) IncCacheHits()                                     {}
func (NoopMetrics) IncCacheMisses()                                   {}
func (NoopMetrics) IncPollsTotal(string, string, string)              {}
func (NoopMetrics) ObservePollDuration(string, string, time.Duration) {}
func (NoopMetrics) IncChangesTotal(string, string)                    {}
func (NoopMetrics) IncEventsDelivered(string)                         {}
func (NoopMetrics) SetLeader(bool)                                    {}
func (NoopMetrics) SetConnectedClients(int)                           {}
func (NoopMetrics) SetSubscriptions(string, int)                      {}

// CountingMetrics records poll and change counters for assertions.
type CountingMetrics struct {
	NoopMetrics
	mu      sync.Mutex
	Polls   map[string]int // key: "provider/region/result"
	Changes map[string]int // key: "provider/region"
	Leader  bool
}

func NewCountingMetrics() *CountingMetrics {
	return &CountingMetrics{
		Polls:   make(map[string]int),
		Changes: make(map[string]int),
	}
}

func (m *CountingMetrics) IncPollsTotal(provider, region, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Polls[provider+"/"+region+"/"+result]++
}

func (m *CountingMetrics) IncChangesTotal(provider, region string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Changes[provider+"/"+region]++
}

func (m *CountingMetrics) SetLeader(leader bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Leader = leader
}

func (m *CountingMetrics) PollCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Polls[key]
}

func (m *CountingMetrics) ChangeCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Changes[key]
}
