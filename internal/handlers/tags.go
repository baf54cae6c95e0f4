package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"readinglist/internal/domain"
)

// ListTags returns tags sorted by name, or by usage with sort=usage.
// A q parameter narrows the list by name.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		tags []domain.Tag
		err  error
	)

	switch {
	case r.URL.Query().Get("q") != "":
		tags, err = h.app.Tags.Search(ctx, r.URL.Query().Get("q"))
	case r.URL.Query().Get("sort") == "usage":
		tags, err = h.app.Tags.ByUsage(ctx)
	default:
		tags, err = h.app.Tags.GetAll(ctx)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tags)
}

// CreateTag adds a tag, or returns the existing tag with the same name when
// getOrCreate=true
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req domain.NewTag
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	var (
		tag *domain.Tag
		err error
	)
	if r.URL.Query().Get("getOrCreate") == "true" {
		tag, err = h.app.Tags.GetOrCreate(r.Context(), req.Name, req.Color)
	} else {
		tag, err = h.app.Tags.Add(r.Context(), req)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tag)
}

// SuggestTags ranks tags by fuzzy match against q
func (h *Handler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tags, err := h.app.Tags.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tags)
}

// UpdateTag applies a partial update
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	var patch domain.TagPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	tag, err := h.app.Tags.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tag)
}

// DeleteTag removes a tag from the list and from every item
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Tags.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
