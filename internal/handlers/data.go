package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"readinglist/internal/domain"
)

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.app.Settings.Get(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings merges the given fields into the saved settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	settings, err := h.app.Settings.Update(r.Context(), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

// Export downloads a backup as JSON (default) or CSV
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	stamp := time.Now().UTC().Format("2006-01-02")

	switch format {
	case "", "json":
		data, err := h.app.Backup.ExportJSON(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reading-list-backup-%s.json"`, stamp))
		h.writeJSON(w, http.StatusOK, data)

	case "csv":
		data, err := h.app.Backup.ExportCSV(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reading-list-export-%s.csv"`, stamp))
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, data); err != nil {
			h.logger.Error("Failed to write CSV export: %v", err)
		}

	default:
		h.writeError(w, r, domain.ValidationError{Field: "format", Message: "must be json or csv"})
	}
}

// Import merges a JSON backup from the request body into the stores
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, domain.ValidationError{Field: "body", Message: "failed to read request body"})
		return
	}

	stats, err := h.app.Backup.Import(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

type metadataRequest struct {
	URL string `json:"url"`
}

// PreviewMetadata scrapes a page without saving anything
func (h *Handler) PreviewMetadata(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	url := domain.NormalizeURL(req.URL)
	if !domain.IsValidURL(url) {
		h.writeError(w, r, domain.ValidationError{Field: "url", Message: "must be an http or https URL"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.app.Enricher.Preview(r.Context(), url))
}

// NetworkStatus reports connectivity and the number of queued operations
func (h *Handler) NetworkStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.app.Network.Status())
}
