package notifier

import (
	"context"
	"fmt"
	"rsd/internal/models"
	"rsd/internal/providers"
	"rsd/internal/store"
	"rsd/internal/structures"
)

// Sink receives the unified change-event shape. Both strategies converge on
// it so downstream consumers cannot tell which one is active.
type Sink interface {
	Publish(ev *models.ChangeEvent)
}

// Notifier translates snapshot mutations into published events. Exactly one
// strategy is active per process, decided once at startup: either the poller
// pushes through Emit (direct) or a storage change-feed listener publishes
// and Emit is a no-op (feed). That split is what guarantees events are never
// delivered twice.
type Notifier interface {
	Start(ctx context.Context)
	Emit(ev *models.ChangeEvent)
	Mode() string
}

func NewNotifier(conf *structures.Config, logger providers.Logger, st store.MetricStore, sink Sink) (Notifier, error) {
	feed, hasFeed := st.(store.ChangeFeed)

	switch conf.Notifier.Mode {
	case "direct":
		logger.Infof(providers.TypeApp, "Change notifier: direct emit")
		return &directNotifier{sink: sink}, nil
	case "feed":
		if !hasFeed {
			return nil, fmt.Errorf("notifier mode %q requires a store with change-feed support", conf.Notifier.Mode)
		}
	case "auto":
		if !hasFeed {
			logger.Infof(providers.TypeApp, "Change notifier: direct emit (store has no change feed)")
			return &directNotifier{sink: sink}, nil
		}
	default:
		return nil, fmt.Errorf("unknown notifier mode %q", conf.Notifier.Mode)
	}

	logger.Infof(providers.TypeApp, "Change notifier: storage change feed")
	return &feedNotifier{feed: feed, sink: sink, logger: logger}, nil
}

// directNotifier forwards poller emissions straight to the sink.
type directNotifier struct {
	sink Sink
}

func (d *directNotifier) Start(_ context.Context) {}

func (d *directNotifier) Emit(ev *models.ChangeEvent) {
	d.sink.Publish(ev)
}

func (d *directNotifier) Mode() string { return "direct" }

// feedNotifier publishes from the store's mutation feed and ignores direct
// emissions. A sustained feed failure is logged, not retried: operators
// restart the process on it.
type feedNotifier struct {
	feed   store.ChangeFeed
	sink   Sink
	logger providers.Logger
}

func (f *feedNotifier) Start(ctx context.Context) {
	go func() {
		if err := f.feed.Feed(ctx, f.sink.Publish); err != nil {
			f.logger.Errorf(providers.TypeFeed, "Change feed stopped: %s", err)
		}
	}()
}

func (f *feedNotifier) Emit(_ *models.ChangeEvent) {}

func (f *feedNotifier) Mode() string { return "feed" }
