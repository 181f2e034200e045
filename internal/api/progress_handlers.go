package api

import (
	"net/http"

	"github.com/JakeFAU/markercheck/internal/progress/sinks"
)

// SnapshotSource provides the live run totals.
type SnapshotSource interface {
	Snapshot() sinks.Snapshot
}

// ProgressHandler exposes the read-only run snapshot.
type ProgressHandler struct {
	source SnapshotSource
}

// NewProgressHandler wires the snapshot source.
func NewProgressHandler(source SnapshotSource) *ProgressHandler {
	return &ProgressHandler{source: source}
}

// Get handles GET /progress. It returns the snapshot as JSON, or 503 when no
// source is configured.
func (h *ProgressHandler) Get(w http.ResponseWriter, _ *http.Request) {
	if h.source == nil {
		writeError(w, http.StatusServiceUnavailable, "progress unavailable")
		return
	}
	writeJSON(w, http.StatusOK, h.source.Snapshot())
}
