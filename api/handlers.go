/*
handlers.go - HTTP API handlers for the calendar engine

PURPOSE:
  Exposes the calendar engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Items:
    GET    /api/items/day?date=YYYY-MM-DD[&category=X]   Items on one day
    GET    /api/items/month?month=YYYY-MM[&category=X]   Items in one month
    POST   /api/items                                    Create item
    PUT    /api/items/{id}                               Update item
    DELETE /api/items/{id}                               Delete/unsubscribe

  Notifications:
    GET    /api/notifications[?unread=true]              List notifications
    POST   /api/notifications/{id}/read                  Mark read

  Events:
    GET    /api/events                                   SSE stream of mutations

  Admin:
    POST   /api/admin/sweep                              Run dedup sweep now

IDENTITY:
  The calling user is taken from the X-User-ID header. There is no
  authentication; this mirrors a single-tenant personal deployment behind
  a trusted proxy.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Edits to protected (generated holiday) items
  - 404: Item or notification not found
  - 500: Internal errors
  The service logs internal errors once, here at the HTTP boundary.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/events"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service       *calendar.Service
	Notifications *calendar.NotificationService
	Sweep         *calendar.Sweep
	Hub           *events.Hub
	Log           *logrus.Logger
}

func NewHandler(service *calendar.Service, notifications *calendar.NotificationService, sweep *calendar.Sweep, hub *events.Hub, log *logrus.Logger) *Handler {
	return &Handler{
		Service:       service,
		Notifications: notifications,
		Sweep:         sweep,
		Hub:           hub,
		Log:           log,
	}
}

// userID extracts the caller from the X-User-ID header.
func userID(r *http.Request) (calendar.UserID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, fmt.Errorf("missing X-User-ID header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid X-User-ID %q", raw)
	}
	return calendar.UserID(id), nil
}

// =============================================================================
// ITEM HANDLERS
// =============================================================================

// ListDay returns the user's items on one day.
func (h *Handler) ListDay(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}
	date, err := calendar.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	cat, err := categoryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid category", err)
		return
	}

	items, err := h.Service.ListDay(r.Context(), uid, date, cat)
	if err != nil {
		h.writeServiceError(w, "Failed to list day", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// ListMonth returns the user's items in one month.
func (h *Handler) ListMonth(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}
	ym, err := calendar.ParseYearMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}
	cat, err := categoryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid category", err)
		return
	}

	items, err := h.Service.ListMonth(r.Context(), uid, ym, cat)
	if err != nil {
		h.writeServiceError(w, "Failed to list month", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// CreateItem creates a new calendar item.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}
	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := toItemInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item", err)
		return
	}

	item, err := h.Service.Create(r.Context(), uid, in)
	if err != nil {
		h.writeServiceError(w, "Failed to create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(*item))
}

// UpdateItem updates an existing calendar item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item id", err)
		return
	}
	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := toItemInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item", err)
		return
	}

	item, err := h.Service.Update(r.Context(), uid, id, in)
	if err != nil {
		h.writeServiceError(w, "Failed to update item", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(*item))
}

// DeleteItem deletes an item; for a rule-linked FIXED_COST occurrence this
// unsubscribes from the whole rule.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item id", err)
		return
	}

	if err := h.Service.Delete(r.Context(), uid, id); err != nil {
		h.writeServiceError(w, "Failed to delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

// ListNotifications returns the user's notifications, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}

	var notifications []calendar.Notification
	if r.URL.Query().Get("unread") == "true" {
		notifications, err = h.Notifications.ListUnread(r.Context(), uid)
	} else {
		notifications, err = h.Notifications.ListAll(r.Context(), uid)
	}
	if err != nil {
		h.writeServiceError(w, "Failed to list notifications", err)
		return
	}

	dtos := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		dtos[i] = toNotificationDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MarkNotificationRead flags one notification as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid notification id", err)
		return
	}

	n, err := h.Notifications.MarkRead(r.Context(), uid, calendar.NotificationID(id))
	if err != nil {
		h.writeServiceError(w, "Failed to mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationDTO(*n))
}

// =============================================================================
// EVENT STREAM
// =============================================================================

// StreamEvents streams mutation events to the client as Server-Sent Events.
// The subscription lives exactly as long as the request.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}

	id, ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunSweep triggers the deduplication sweep immediately.
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Sweep.Run(r.Context())
	if err != nil {
		h.Log.WithError(err).Warn("sweep finished with errors")
	}
	writeJSON(w, http.StatusOK, SweepResultDTO{
		HolidaysRemoved:  stats.HolidaysRemoved,
		ItemsRemoved:     stats.ItemsRemoved,
		RulesDeactivated: stats.RulesDeactivated,
		MonthsEvicted:    stats.MonthsEvicted,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func itemID(r *http.Request) (calendar.ItemID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return calendar.ItemID(id), nil
}

func categoryFilter(r *http.Request) (*calendar.Category, error) {
	raw := r.URL.Query().Get("category")
	if raw == "" {
		return nil, nil
	}
	cat := calendar.Category(raw)
	switch cat {
	case calendar.CategorySchool, calendar.CategoryWorkout, calendar.CategoryMainMeal,
		calendar.CategoryJob, calendar.CategoryFixedCost, calendar.CategoryOther:
		return &cat, nil
	}
	return nil, fmt.Errorf("unknown category %q", raw)
}

// writeServiceError maps domain errors to HTTP statuses and logs internal
// failures once, here.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, calendar.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, calendar.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, calendar.ErrProtectedItem):
		writeError(w, http.StatusForbidden, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
