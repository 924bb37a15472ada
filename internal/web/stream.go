package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"quicktasks/internal/controller"
	"quicktasks/internal/service"
)

// handleStream sends one "snapshot" event per subscription snapshot, each
// carrying the full filtered list. A subscription error is sent as an
// "error" event and ends the stream. The subscription is disposed when the
// client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	filter, err := service.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	ctrl, _ := s.newController(r, controller.WithFilter(filter))
	changed := make(chan struct{}, 1)
	ctrl.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx := r.Context()
	if err := ctrl.Mount(ctx); err != nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	defer ctrl.Unmount()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	rc.Flush()

	if err := ctrl.WaitReady(ctx); err != nil {
		return
	}

	for {
		select {
		case <-changed:
		default:
		}
		if err := ctrl.Err(); err != nil {
			writeEvent(w, "error", map[string]string{"error": controller.MsgFetchFailed})
			rc.Flush()
			return
		}
		if err := writeEvent(w, "snapshot", ctrl.Visible()); err != nil {
			return
		}
		rc.Flush()

		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
