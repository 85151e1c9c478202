package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/app/selection"
	"github.com/preston-bernstein/matchday-service/internal/logging"
)

const eventSelection = "selection"

// SelectionEvents streams selection state changes as server-sent events,
// starting with the current state.
func (h *Handler) SelectionEvents(w nethttp.ResponseWriter, r *nethttp.Request) {
	flusher, ok := w.(nethttp.Flusher)
	if !ok {
		writeError(w, r, nethttp.StatusInternalServerError, "streaming unsupported", h.logger)
		return
	}
	logger := loggerFromContext(r, h.logger)

	states, unsubscribe := h.sel.Subscribe()
	defer unsubscribe()

	// The server write timeout would otherwise cut the stream.
	_ = nethttp.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(nethttp.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.closed:
			return
		case st, open := <-states:
			if !open {
				return
			}
			if err := writeEvent(w, st); err != nil {
				logging.Debug(logger, "event stream closed", slog.Any("err", err))
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w nethttp.ResponseWriter, st selection.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", st.Seq, eventSelection, data)
	return err
}
