package poller

import (
	"context"
	"rsd/internal/lock"
	"rsd/internal/models"
	"rsd/internal/notifier"
	"rsd/internal/providers"
	"rsd/internal/services"
	"rsd/internal/structures"
	"sync"
	"time"

	"github.com/roylee0704/gron"
	"go.uber.org/atomic"
)

type PollerInterface interface {
	Start()
	Stop()
}

// Poller runs one schedule per source. Polls for one source are strictly
// sequential (per-source mutex); polls across sources run concurrently so a
// slow provider never delays the others. Every side-effecting step is gated
// on current leadership.
type Poller struct {
	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	sources  []models.Source
	svc      services.StatusServiceInterface
	notif    notifier.Notifier
	gate     lock.Gate
	fetchers map[string]Fetcher
	inflight map[string]*sync.Mutex

	fetchTimeout time.Duration
	cron         *gron.Cron
	running      *atomic.Bool
}

func NewPoller(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, sources []models.Source, svc services.StatusServiceInterface, notif notifier.Notifier, gate lock.Gate) PollerInterface {
	fetchers := make(map[string]Fetcher, len(sources))
	inflight := make(map[string]*sync.Mutex, len(sources))
	for _, src := range sources {
		fetchers[src.Key()] = NewFetcher(src, conf.Poller.FetchTimeout)
		inflight[src.Key()] = &sync.Mutex{}
	}
	return &Poller{
		logger:       logger,
		metrics:      metrics,
		sources:      sources,
		svc:          svc,
		notif:        notif,
		gate:         gate,
		fetchers:     fetchers,
		inflight:     inflight,
		fetchTimeout: conf.Poller.FetchTimeout,
		running:      atomic.NewBool(false),
	}
}

// Start polls every source once immediately, then schedules recurring polls
// at each source's own interval.
func (p *Poller) Start() {
	if p.running.Swap(true) {
		return
	}

	for _, src := range p.sources {
		go p.poll(src)
	}

	p.cron = gron.New()
	for _, src := range p.sources {
		src := src
		p.cron.AddFunc(gron.Every(src.Interval), func() {
			p.poll(src)
		})
	}
	p.cron.Start()

	p.logger.Infof(providers.TypePoll, "Poller started with %d sources", len(p.sources))
}

// Stop cancels the schedules. An in-flight fetch finishes or hits its own
// timeout; it is not aborted mid-flight.
func (p *Poller) Stop() {
	if !p.running.Swap(false) {
		return
	}
	if p.cron != nil {
		p.cron.Stop()
	}
	p.logger.Infof(providers.TypePoll, "Poller stopped")
}

func (p *Poller) poll(src models.Source) {
	key := src.Key()
	mu := p.inflight[key]
	mu.Lock()
	defer mu.Unlock()

	if !p.running.Load() || !p.gate.IsLeader() {
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), p.fetchTimeout)
	defer cancel()

	payload, err := p.fetchers[key].Fetch(ctx)
	if err != nil {
		p.logger.Warnf(providers.TypePoll, "Poll failed for %s: %s", key, err)
		p.metrics.IncPollsTotal(src.Provider, string(src.Region), "error")
		return
	}

	// Leadership may have lapsed during the fetch; re-check before writing.
	if !p.gate.IsLeader() {
		return
	}

	ev, err := p.svc.RecordObservation(src, payload)
	if err != nil {
		p.logger.Errorf(providers.TypePoll, "Recording observation for %s failed: %s", key, err)
		p.metrics.IncPollsTotal(src.Provider, string(src.Region), "error")
		return
	}

	p.metrics.ObservePollDuration(src.Provider, string(src.Region), time.Since(start))
	if ev == nil {
		p.metrics.IncPollsTotal(src.Provider, string(src.Region), "unchanged")
		return
	}

	p.metrics.IncPollsTotal(src.Provider, string(src.Region), "changed")
	p.notif.Emit(ev)
}
