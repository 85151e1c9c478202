// Package handlers exposes the selection controller and date cache over HTTP.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/preston-bernstein/matchday-service/internal/app/fetch"
	"github.com/preston-bernstein/matchday-service/internal/app/selection"
	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/logging"
	"github.com/preston-bernstein/matchday-service/internal/poller"
	"github.com/preston-bernstein/matchday-service/internal/store"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

const defaultHeartbeat = 15 * time.Second

// Selection is the controller surface the handlers drive.
type Selection interface {
	State() selection.State
	Window() []timeutil.DateKey
	Today() timeutil.DateKey
	SelectDate(ctx context.Context, date timeutil.DateKey) error
	Refresh(ctx context.Context) error
	Retry(ctx context.Context) error
	MatchesFor(date timeutil.DateKey) (store.Entry, bool)
	Subscribe() (<-chan selection.State, func())
}

// WindowResponse lists the navigable dates.
type WindowResponse struct {
	Today         timeutil.DateKey   `json:"today"`
	Dates         []timeutil.DateKey `json:"dates"`
	SelectedIndex int                `json:"selectedIndex"`
}

// MatchesResponse is the cached fixture set for one date. Fetched is false
// when the date has never been loaded.
type MatchesResponse struct {
	Date      timeutil.DateKey      `json:"date"`
	Fetched   bool                  `json:"fetched"`
	Stale     bool                  `json:"stale"`
	ExpiresAt *time.Time            `json:"expiresAt,omitempty"`
	StoredAt  *time.Time            `json:"storedAt,omitempty"`
	Count     int                   `json:"count"`
	Matches   []matches.MatchRecord `json:"matches"`
}

// Handler wires HTTP routes to the selection controller.
type Handler struct {
	sel       Selection
	logger    *slog.Logger
	now       func() time.Time
	statusFn  func() poller.Status
	heartbeat time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// NewHandler constructs a Handler with defaults. statusFn may be nil.
func NewHandler(sel Selection, logger *slog.Logger, statusFn func() poller.Status) *Handler {
	return &Handler{
		sel:       sel,
		logger:    logger,
		now:       time.Now,
		statusFn:  statusFn,
		heartbeat: defaultHeartbeat,
		closed:    make(chan struct{}),
	}
}

// Health reports the service health.
func (h *Handler) Health(w nethttp.ResponseWriter, r *nethttp.Request) {
	if err := r.Context().Err(); err != nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, StatusResponse{Status: "ok"}, h.logger)
}

// Ready reports readiness for traffic (e.g., for Kubernetes probes).
func (h *Handler) Ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h.statusFn == nil {
		writeJSON(w, nethttp.StatusOK, StatusResponse{Status: "ready"}, h.logger)
		return
	}
	status := h.statusFn()
	if status.IsReady() {
		writeJSON(w, nethttp.StatusOK, StatusResponse{Status: "ready"}, h.logger)
		return
	}
	msg := status.LastError
	if msg == "" {
		msg = "not ready"
	}
	writeError(w, r, nethttp.StatusServiceUnavailable, msg, h.logger)
}

// Window returns the date window and the selected index.
func (h *Handler) Window(w nethttp.ResponseWriter, r *nethttp.Request) {
	dates := h.sel.Window()
	if dates == nil {
		dates = []timeutil.DateKey{}
	}
	writeJSON(w, nethttp.StatusOK, WindowResponse{
		Today:         h.sel.Today(),
		Dates:         dates,
		SelectedIndex: h.sel.State().Index,
	}, h.logger)
}

// Selection returns the current selection state.
func (h *Handler) Selection(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, h.sel.State(), h.logger)
}

// SelectDate moves the selection to the date in the path.
func (h *Handler) SelectDate(w nethttp.ResponseWriter, r *nethttp.Request) {
	date, ok := h.pathDate(w, r)
	if !ok {
		return
	}
	h.respondAfter(w, r, "select date", h.sel.SelectDate(r.Context(), date))
}

// Refresh force-reloads the selected date.
func (h *Handler) Refresh(w nethttp.ResponseWriter, r *nethttp.Request) {
	h.respondAfter(w, r, "refresh", h.sel.Refresh(r.Context()))
}

// Retry repeats the last foreground load.
func (h *Handler) Retry(w nethttp.ResponseWriter, r *nethttp.Request) {
	h.respondAfter(w, r, "retry", h.sel.Retry(r.Context()))
}

// Matches returns whatever is cached for the date in the path, fresh or not.
// It never triggers a fetch.
func (h *Handler) Matches(w nethttp.ResponseWriter, r *nethttp.Request) {
	date, ok := h.pathDate(w, r)
	if !ok {
		return
	}
	resp := MatchesResponse{Date: date, Matches: []matches.MatchRecord{}}
	if entry, found := h.sel.MatchesFor(date); found {
		expires, stored := entry.ExpiresAt, entry.StoredAt
		resp.Fetched = true
		resp.Stale = !entry.ValidAt(h.now())
		resp.ExpiresAt = &expires
		resp.StoredAt = &stored
		if entry.Matches != nil {
			resp.Matches = entry.Matches
		}
	}
	resp.Count = len(resp.Matches)
	writeJSON(w, nethttp.StatusOK, resp, h.logger)
}

// CloseStreams ends every open event stream. It is safe to call more than once.
func (h *Handler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closed) })
}

func (h *Handler) pathDate(w nethttp.ResponseWriter, r *nethttp.Request) (timeutil.DateKey, bool) {
	raw := mux.Vars(r)["date"]
	date, err := timeutil.ParseDateKey(raw)
	if err != nil {
		writeError(w, r, nethttp.StatusBadRequest, "invalid date format (expected YYYY-MM-DD)", h.logger)
		return timeutil.DateKey{}, false
	}
	return date, true
}

// respondAfter writes the state after a controller operation, mapping its error.
func (h *Handler) respondAfter(w nethttp.ResponseWriter, r *nethttp.Request, op string, err error) {
	if err == nil {
		writeJSON(w, nethttp.StatusOK, h.sel.State(), h.logger)
		return
	}
	logger := loggerFromContext(r, h.logger)
	status, msg := statusFor(err)
	logging.Warn(logger, op+" failed",
		slog.Int(logging.FieldStatusCode, status),
		slog.Any("err", err),
	)
	writeError(w, r, status, msg, logger)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, selection.ErrNotInitialized):
		return nethttp.StatusServiceUnavailable, "selection not initialized"
	case errors.Is(err, selection.ErrDateOutsideWindow):
		return nethttp.StatusNotFound, "date outside window"
	case errors.Is(err, fetch.ErrTotalFailure):
		return nethttp.StatusBadGateway, "upstream fetch failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nethttp.StatusGatewayTimeout, "request cancelled"
	default:
		return nethttp.StatusInternalServerError, "internal error"
	}
}
