package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"readinglist/internal/domain"
)

// ListCollections returns collections newest first; q filters by name or
// description
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	var (
		collections []domain.Collection
		err         error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		collections, err = h.app.Collections.Search(r.Context(), q)
	} else {
		collections, err = h.app.Collections.GetAll(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, collections)
}

// CreateCollection stores a new rule-defined collection
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req domain.NewCollection
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	// Only the application seeds system collections
	req.IsSystem = false

	collection, err := h.app.Collections.Add(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, collection)
}

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := h.app.Collections.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, collection)
}

func (h *Handler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	var patch domain.CollectionPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	collection, err := h.app.Collections.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, collection)
}

// DeleteCollection removes a user collection; system collections are refused
func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Collections.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CollectionItems returns the items currently matching a collection's rules
func (h *Handler) CollectionItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Collections.Items(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.sortItems(r, items))
}
