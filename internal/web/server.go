// Package web serves the timing state over HTTP: a JSON status API,
// the recent lap list, and a websocket that streams live snapshots.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"laptimer-ng/internal/session"
)

// Config holds the web server settings.
type Config struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// StatusSource provides the current timing snapshot on demand.
type StatusSource interface {
	Snapshot() session.Snapshot
}

// Handler builds the HTTP mux. hub may be nil to disable /ws.
func Handler(status StatusSource, hub *Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, status.Snapshot())
	})

	mux.HandleFunc("/api/laps", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := status.Snapshot()
		secs := make([]float64, 0, len(snap.History))
		for _, d := range snap.History {
			secs = append(secs, d.Seconds())
		}
		resp := struct {
			Completed  int       `json:"completed"`
			BestLapS   float64   `json:"best_lap_s"`
			BestLapNum int       `json:"best_lap_num"`
			AverageS   float64   `json:"average_s"`
			HistoryS   []float64 `json:"history_s"`
		}{
			Completed:  snap.Completed,
			BestLapS:   snap.BestLap.Seconds(),
			BestLapNum: snap.BestLapNum,
			AverageS:   snap.AverageLap.Seconds(),
			HistoryS:   secs,
		}
		writeJSON(w, resp)
	})

	if hub != nil {
		mux.HandleFunc("/ws", hub.ServeWS)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexPage))
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, listenAddr string, status StatusSource, hub *Hub) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, hub),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

const indexPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>laptimer-ng</title></head>
<body>
<h1>laptimer-ng</h1>
<pre id="out">connecting...</pre>
<script>
const out = document.getElementById('out');
function connect() {
  const ws = new WebSocket('ws://' + location.host + '/ws');
  ws.onmessage = (e) => { out.textContent = JSON.stringify(JSON.parse(e.data), null, 2); };
  ws.onclose = () => { out.textContent = 'disconnected'; setTimeout(connect, 1000); };
}
connect();
</script>
</body></html>
`
