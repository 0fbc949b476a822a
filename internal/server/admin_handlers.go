package server

import (
	"net/http"
	"time"

	jsonwriter "github.com/atelierline/storefront/internal/json"
	"github.com/atelierline/storefront/internal/log"
	"github.com/atelierline/storefront/internal/storage"
)

// AdminHandlers serves the operational status endpoints. Authentication is
// handled by the basic-auth middleware in front of these.
type AdminHandlers struct {
	storage   storage.Storage
	storeName string
	startedAt time.Time
}

func NewAdminHandlers(store storage.Storage, storeName string) *AdminHandlers {
	return &AdminHandlers{
		storage:   store,
		storeName: storeName,
		startedAt: time.Now(),
	}
}

// StatusHandler reports store statistics and the current log level
func (h *AdminHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteMethodNotAllowed(w, "Method not allowed")
		return
	}

	stats, err := h.storage.Stats(r.Context())
	if err != nil {
		log.LogErrorWithFields("admin", "Failed to collect storage stats", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to collect stats")
		return
	}

	jsonwriter.Write(w, map[string]any{
		"store":          h.storeName,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"log_level":      log.GetLogLevel(),
		"sessions":       stats.Sessions,
		"carts":          stats.Carts,
		"handshakes":     stats.Handshakes,
	})
}

// LoggingHandler changes the log level at runtime
func (h *AdminHandlers) LoggingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteMethodNotAllowed(w, "Method not allowed")
		return
	}

	if err := r.ParseForm(); err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid form data")
		return
	}

	level := r.PostForm.Get("level")
	if err := log.SetLogLevel(level); err != nil {
		jsonwriter.WriteBadRequest(w, err.Error())
		return
	}

	log.LogInfoWithFields("admin", "Log level changed", map[string]any{
		"level": level,
	})
	jsonwriter.Write(w, map[string]string{"log_level": level})
}
