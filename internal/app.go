package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"rsd/internal/controllers"
	"rsd/internal/gateway"
	"rsd/internal/lock"
	"rsd/internal/notifier"
	"rsd/internal/poller"
	"rsd/internal/providers"
	"rsd/internal/store"
	"rsd/internal/structures"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type App struct {
	WebServer *http.Server
}

func NewApp(
	healthController *controllers.HealthController,
	wsController *controllers.WsController,
	pollr poller.PollerInterface,
	leaseManager *lock.Manager,
	notif notifier.Notifier,
	hub *gateway.Hub,
	st *store.BadgerStore,
	conf *structures.Config,
	logger providers.Logger,
	router providers.RouterProviderInterface,
	metrics providers.MetricsProviderInterface,
) (*App, error) {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, apiMux)

	// Outer mux: infrastructure + instrumented API. The websocket route
	// stays outside the middleware: the status-recording wrapper would hide
	// the http.Hijacker the upgrade needs.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	mux.HandleFunc("/ws", wsController.ServeWS)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	logger.Infof(providers.TypeApp, "Starting %s", conf.AppName)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		hub.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		st.RunGC(groupCtx, conf.Storage.GCInterval)
		return nil
	})

	notif.Start(groupCtx)

	if leaseManager != nil {
		group.Go(func() error {
			leaseManager.RetryAcquireLoop(groupCtx, pollr.Start)
			return nil
		})
	} else {
		pollr.Start()
	}

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		return nil, fmt.Errorf("server error: %w", err)
	}

	pollr.Stop()
	if leaseManager != nil {
		// Release before closing storage so another instance can take over
		// without waiting out the TTL.
		leaseManager.Release()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := app.WebServer.Shutdown(shutdownCtx); err != nil {
		return nil, err
	}

	cancel()
	_ = group.Wait()

	if err := st.Close(); err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}
