package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"stellar-pets-api/internal/repository"
	"stellar-pets-api/pkg/response"
)

// PetCounter reports the number of pets ever minted.
type PetCounter interface {
	PetCount(ctx context.Context) (uint32, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	store     repository.Store
	pets      PetCounter
	cache     func(ctx context.Context) error
	storeType string
	cacheType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. cachePing may be nil.
func NewAdminHandler(
	store repository.Store,
	pets PetCounter,
	cachePing func(ctx context.Context) error,
	storeType, cacheType string,
) *AdminHandler {
	return &AdminHandler{
		store:     store,
		pets:      pets,
		cache:     cachePing,
		storeType: storeType,
		cacheType: cacheType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType
	stats["cache_type"] = h.cacheType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Store stats
	if storeStats, err := h.store.Stats(ctx); err == nil {
		storeStats["status"] = "connected"
		stats["store"] = storeStats
	} else {
		stats["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	if count, err := h.pets.PetCount(ctx); err == nil {
		stats["pets_minted"] = count
	}

	// Cache status
	switch {
	case h.cache == nil:
		stats["cache"] = map[string]interface{}{"status": "not_configured"}
	case h.cache(ctx) != nil:
		stats["cache"] = map[string]interface{}{"status": "error"}
	default:
		stats["cache"] = map[string]interface{}{"status": "connected"}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
