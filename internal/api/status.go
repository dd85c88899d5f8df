package api

import (
	"net/http"
	"time"

	"github.com/snarg/cel-engine/internal/cel"
)

type statusHandler struct {
	engine    *cel.Engine
	celConf   string
	version   string
	startTime time.Time
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Enabled bool   `json:"enabled"`
}

func (h *statusHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Enabled: h.engine.Enabled(),
	})
}

func (h *statusHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// statusText serves the console-style report.
func (h *statusHandler) statusText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	h.engine.WriteStatus(w)
}

// reload re-reads cel.conf on demand; the config watcher covers file edits,
// this covers orchestration.
func (h *statusHandler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reload(h.celConf); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Status())
}
