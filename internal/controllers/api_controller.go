package controllers

import (
	"net/http"
	"rsd/internal/models"
	"rsd/internal/providers"
	"rsd/internal/services"
	"rsd/internal/store"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

type ApiController struct {
	logger  providers.Logger
	service services.StatusServiceInterface
	cache   providers.CacheProviderInterface
	sources []models.Source
}

func NewApiController(logger providers.Logger, service services.StatusServiceInterface, cache providers.CacheProviderInterface, sources []models.Source) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		cache:   cache,
		sources: sources,
	}
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// sourceQuery reads the optional provider+region pair from query params.
func sourceQuery(r *http.Request) (provider string, region models.Region, hasSource bool, bad bool) {
	p := r.URL.Query().Get("provider")
	reg := r.URL.Query().Get("region")
	if p == "" && reg == "" {
		return "", "", false, false
	}
	if p == "" || reg == "" {
		return "", "", false, true
	}
	region, ok := models.ParseRegion(reg)
	if !ok {
		return "", "", false, true
	}
	return p, region, true, false
}

func (ac *ApiController) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	provider, region, hasSource, bad := sourceQuery(r)
	if bad {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if hasSource {
		snap, err := ac.service.GetSnapshot(provider, region)
		if err == store.ErrNotFound {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		if err != nil {
			ac.logger.Errorf(providers.TypeGet, "Snapshot lookup failed: %s", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		gson, err := json.Marshal(snap)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(gson)
		return
	}

	ac.serveFromCacheOrCompute(w, "snapshots", func() (any, error) {
		return ac.service.GetAllSnapshots()
	})
}

func (ac *ApiController) GetHistory(w http.ResponseWriter, r *http.Request) {
	provider, region, hasSource, bad := sourceQuery(r)
	if bad {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	filter := store.HistoryFilter{}
	if hasSource {
		filter.Provider = provider
		filter.Region = region
	}
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		filter.To = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	entries, err := ac.service.GetHistory(filter)
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "History query failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	gson, err := json.Marshal(map[string]any{"items": entries, "count": len(entries)})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) GetRegions(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "regions", func() (any, error) {
		return models.RegionNames(), nil
	})
}

func (ac *ApiController) GetSources(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "sources", func() (any, error) {
		return ac.sources, nil
	})
}
