package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"readinglist/internal/domain"
	"readinglist/internal/service"
)

// itemFilter reads the item query parameters; tag may repeat
func itemFilter(r *http.Request) (domain.ItemFilter, error) {
	q := r.URL.Query()
	filter := domain.ItemFilter{
		Status:   domain.Status(q.Get("status")),
		Priority: domain.Priority(q.Get("priority")),
		Domain:   q.Get("domain"),
		Tags:     q["tag"],
		Query:    q.Get("q"),
	}

	var err error
	if filter.CreatedAfter, err = queryTime(r, "createdAfter"); err != nil {
		return filter, err
	}
	if filter.CreatedBefore, err = queryTime(r, "createdBefore"); err != nil {
		return filter, err
	}
	if filter.MinEstMinutes, err = queryIntPtr(r, "minMinutes"); err != nil {
		return filter, err
	}
	if filter.MaxEstMinutes, err = queryIntPtr(r, "maxMinutes"); err != nil {
		return filter, err
	}
	return filter, nil
}

// sortItems orders items by the sort and dir parameters, falling back to
// the saved settings
func (h *Handler) sortItems(r *http.Request, items []domain.Item) []domain.Item {
	by := domain.SortOption(r.URL.Query().Get("sort"))
	dir := domain.SortDirection(r.URL.Query().Get("dir"))

	if by == "" || dir == "" {
		settings, err := h.app.Settings.Get(r.Context())
		if err != nil {
			h.logger.Warn("Failed to load sort settings: %v", err)
			settings = domain.DefaultSettings()
		}
		if by == "" {
			by = settings.SortBy
		}
		if dir == "" {
			dir = settings.SortDirection
		}
	}
	return service.SortItems(items, by, dir)
}

// ListItems returns the items matching the query parameters
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	filter, err := itemFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items, err := h.app.Items.Query(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.sortItems(r, items))
}

// CreateItem stores a new item and schedules metadata enrichment
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.NewItem
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	item, err := h.app.Items.Add(r.Context(), req)
	if err != nil && !service.IsUsageError(err) {
		h.writeError(w, r, err)
		return
	}
	if err != nil {
		h.logger.Warn("Item %s stored but tag usage is stale: %v", item.ID, err)
	}

	if !item.MetadataFetched {
		h.app.EnrichLater(item.ID)
	}
	h.writeJSON(w, http.StatusCreated, item)
}

// GetItem returns a single item
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.app.Items.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// UpdateItem applies a partial update
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch domain.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	item, err := h.app.Items.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil && !service.IsUsageError(err) {
		h.writeError(w, r, err)
		return
	}
	if err != nil {
		h.logger.Warn("Item %s updated but tag usage is stale: %v", item.ID, err)
	}
	h.writeJSON(w, http.StatusOK, item)
}

// DeleteItem removes an item
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	err := h.app.Items.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil && !service.IsUsageError(err) {
		h.writeError(w, r, err)
		return
	}
	if err != nil {
		h.logger.Warn("Item deleted but tag usage is stale: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenItem records that the item was opened
func (h *Handler) OpenItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.app.Items.MarkOpened(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// RecentItems returns the most opened items in a trailing window
func (h *Handler) RecentItems(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 7)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	recent, err := h.app.Items.RecentlyOpened(r.Context(), days, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recent)
}

// Stats returns the reading list summary
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Items.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
