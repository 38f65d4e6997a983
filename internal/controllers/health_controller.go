package controllers

import (
	"fmt"
	"net/http"
	"rsd/internal/gateway"
	"rsd/internal/lock"
	"rsd/internal/models"
	"time"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	hub       *gateway.Hub
	gate      lock.Gate
	sources   []models.Source
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Sources       int     `json:"sources"`
	Clients       int     `json:"clients"`
	Leader        bool    `json:"leader"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Sources:       len(hc.sources),
		Clients:       hc.hub.ClientCount(),
		Leader:        hc.gate.IsLeader(),
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(hub *gateway.Hub, gate lock.Gate, sources []models.Source) *HealthController {
	return &HealthController{
		hub:       hub,
		gate:      gate,
		sources:   sources,
		startTime: time.Now(),
	}
}
