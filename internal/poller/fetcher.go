package poller

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"rsd/internal/models"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const maxResponseBodySize = 1 << 20 // 1 MB

// Fetcher produces one raw status payload per call. The poller never retries
// inside a cycle; a failed fetch is skipped until the next scheduled poll.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// NewFetcher picks the fetch strategy for a source: HTTP when a URL is
// configured, the synthetic generator otherwise (local/demo deployments).
func NewFetcher(src models.Source, timeout time.Duration) Fetcher {
	if src.URL != "" {
		return NewHTTPFetcher(src.URL, timeout)
	}
	return NewSyntheticFetcher(src)
}

type HTTPFetcher struct {
	url    string
	client *http.Client
}

func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, f.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// SyntheticFetcher generates plausible region status payloads. The payload
// stays stable between calls and drifts occasionally so the change-detection
// path gets exercised without any external dependency.
type SyntheticFetcher struct {
	mu       sync.Mutex
	provider string
	region   models.Region
	rng      *rand.Rand
	load     int
	latency  int
	services map[string]string
}

var syntheticServices = []string{"compute", "storage", "network", "dns"}

func NewSyntheticFetcher(src models.Source) *SyntheticFetcher {
	seed := int64(0)
	for _, c := range src.Key() {
		seed = seed*31 + int64(c)
	}
	rng := rand.New(rand.NewSource(seed))

	services := make(map[string]string, len(syntheticServices))
	for _, name := range syntheticServices {
		services[name] = "operational"
	}

	return &SyntheticFetcher{
		provider: src.Provider,
		region:   src.Region,
		rng:      rng,
		load:     10 + rng.Intn(50),
		latency:  5 + rng.Intn(40),
		services: services,
	}
}

func (f *SyntheticFetcher) Fetch(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rng.Float64() < 0.2 {
		f.load = 5 + f.rng.Intn(90)
		f.latency = 5 + f.rng.Intn(200)
	}
	if f.rng.Float64() < 0.05 {
		name := syntheticServices[f.rng.Intn(len(syntheticServices))]
		if f.services[name] == "operational" {
			f.services[name] = "degraded"
		} else {
			f.services[name] = "operational"
		}
	}

	incidents := 0
	for _, status := range f.services {
		if status != "operational" {
			incidents++
		}
	}

	return json.Marshal(map[string]interface{}{
		"provider": f.provider,
		"region":   f.region,
		"services": f.services,
		"metrics": map[string]int{
			"cpu_load":   f.load,
			"latency_ms": f.latency,
		},
		"incidents": incidents,
	})
}
