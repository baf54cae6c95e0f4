package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"readinglist/internal/app"
	"readinglist/internal/domain"
	"readinglist/internal/logger"
)

const maxBodyBytes = 32 << 20

// Handler holds the HTTP handlers
type Handler struct {
	app       *app.App
	events    *EventHub
	notesPage *template.Template
	logger    *logger.Logger
}

// NewHandler creates a new handler serving a
func NewHandler(a *app.App, log *logger.Logger) *Handler {
	events := NewEventHub(map[string]Source{
		"items":       a.Items,
		"tags":        a.Tags,
		"collections": a.Collections,
		"settings":    a.Settings,
		"network":     a.Network,
	}, log)

	log.Info("Handler initialized successfully")
	return &Handler{
		app:       a,
		events:    events,
		notesPage: template.Must(template.New("notes").Parse(notesTemplate)),
		logger:    log,
	}
}

// Close detaches the event hub from the stores and ends open event streams
func (h *Handler) Close() {
	h.events.Close()
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/items", h.ListItems).Methods("GET")
	api.HandleFunc("/items", h.CreateItem).Methods("POST")
	api.HandleFunc("/items/recent", h.RecentItems).Methods("GET")
	api.HandleFunc("/items/{id}", h.GetItem).Methods("GET")
	api.HandleFunc("/items/{id}", h.UpdateItem).Methods("PATCH")
	api.HandleFunc("/items/{id}", h.DeleteItem).Methods("DELETE")
	api.HandleFunc("/items/{id}/open", h.OpenItem).Methods("POST")
	api.HandleFunc("/items/{id}/notes", h.ItemNotes).Methods("GET")
	api.HandleFunc("/stats", h.Stats).Methods("GET")

	api.HandleFunc("/tags", h.ListTags).Methods("GET")
	api.HandleFunc("/tags", h.CreateTag).Methods("POST")
	api.HandleFunc("/tags/suggest", h.SuggestTags).Methods("GET")
	api.HandleFunc("/tags/{id}", h.UpdateTag).Methods("PATCH")
	api.HandleFunc("/tags/{id}", h.DeleteTag).Methods("DELETE")

	api.HandleFunc("/collections", h.ListCollections).Methods("GET")
	api.HandleFunc("/collections", h.CreateCollection).Methods("POST")
	api.HandleFunc("/collections/{id}", h.GetCollection).Methods("GET")
	api.HandleFunc("/collections/{id}", h.UpdateCollection).Methods("PATCH")
	api.HandleFunc("/collections/{id}", h.DeleteCollection).Methods("DELETE")
	api.HandleFunc("/collections/{id}/items", h.CollectionItems).Methods("GET")

	api.HandleFunc("/settings", h.GetSettings).Methods("GET")
	api.HandleFunc("/settings", h.UpdateSettings).Methods("PATCH")
	api.HandleFunc("/export", h.Export).Methods("GET")
	api.HandleFunc("/import", h.Import).Methods("POST")
	api.HandleFunc("/metadata", h.PreviewMetadata).Methods("POST")
	api.HandleFunc("/network", h.NetworkStatus).Methods("GET")
	api.HandleFunc("/events", h.Events).Methods("GET")

	router.HandleFunc("/healthz", h.Health).Methods("GET")

	// 404 handler for all other routes
	router.NotFoundHandler = http.HandlerFunc(h.NotFoundHandler)
}

// Routes returns the complete API with CORS applied in front of routing so
// preflight requests never reach the router
func (h *Handler) Routes() http.Handler {
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	options := cors.Options{
		AllowedOrigins: h.app.Config.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", "Cache-Control", "X-Requested-With"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}
	return cors.Handler(options)(router)
}

// Health reports that the process is serving
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFoundHandler handles 404 errors
func (h *Handler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("404 requested for path '%s'", r.URL.Path)
	h.writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsValidationError(err), errors.Is(err, domain.ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSystemCollection):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var ve domain.ValidationError
	if errors.As(err, &ve) {
		body = errorBody{Error: ve.Message, Field: ve.Field}
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		body = errorBody{Error: "Internal server error"}
	} else {
		h.logger.Warn("%s %s rejected (%d): %v", r.Method, r.URL.Path, status, err)
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to write response: %v", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domain.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

func queryIntPtr(r *http.Request, key string) (*int, error) {
	if r.URL.Query().Get(key) == "" {
		return nil, nil
	}
	n, err := queryInt(r, key, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.ValidationError{Field: key, Message: "must be an RFC 3339 timestamp"}
	}
	return &t, nil
}
