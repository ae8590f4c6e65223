package status

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RetryInterval is the reconnection delay suggested to EventSource clients
const RetryInterval = time.Second

// Handler streams a Broadcaster as Server-Sent Events
type Handler struct {
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// NewHandler adapts a broadcaster to the event-stream wire format
func NewHandler(b *Broadcaster, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{broadcaster: b, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	logger := h.logger.With("subscriber", uuid.NewString())
	sub := h.broadcaster.Subscribe()
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", RetryInterval.Milliseconds()); err != nil {
		return
	}
	flusher.Flush()
	logger.Debug("status subscriber connected", "remote", req.RemoteAddr)

	for {
		select {
		case <-req.Context().Done():
			logger.Debug("status subscriber disconnected")
			return

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				logger.Debug("status stream write failed", "error", err)
				return
			}
			flusher.Flush()

			if ev.Kind == CloseEvent {
				logger.Debug("status stream closed")
				return
			}
		}
	}
}

// writeEvent writes one event in the event-stream format
func writeEvent(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev.Status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
