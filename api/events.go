package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jmcleod/vocabadmin/auth"
)

const keepAliveInterval = 25 * time.Second

// Events streams "session" server-sent events: one with the current state
// on connect, then one after every transition. Pages compare the revision
// with the one they were rendered at and reload on a mismatch.
func (a *API) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := auth.FromContext(ctx)
	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout. Unsupported writers
	// simply keep their defaults.
	_ = rc.SetWriteDeadline(time.Time{})

	changed := make(chan struct{}, 1)
	unsubscribe := st.Subscribe(func(auth.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func() error {
		snap := st.Snapshot()
		data, err := json.Marshal(SessionEvent{Status: snap.Status().String(), Revision: snap.Revision})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}
	if err := send(); err != nil {
		a.logger.DebugContext(ctx, "event stream closed", "error", err)
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			if err := send(); err != nil {
				a.logger.DebugContext(ctx, "event stream closed", "error", err)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
