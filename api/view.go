package haptics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	Ho "github.com/zain-sajid/haptics/obvy"
	Hs "github.com/zain-sajid/haptics/server"
	Ht "github.com/zain-sajid/haptics/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// View is the trigger surface: it plays patterns on the Board
// and reports session state, nothing here draws anything.
type View struct {
	MU     sync.Mutex
	Board  *Hs.Board
	Stats  *Ho.StatsInternal
	server *http.Server
}

// NewView attaches stats to the board, the playing gauge
// follows every session transition
func NewView(b *Hs.Board) (*View, error) {
	if b == nil {
		slog.Error("Could not get a Board for the view")
		return nil, errors.New("board not found")
	}

	v := &View{
		Board: b,
		Stats: Ho.NewStatsInternal(),
	}
	b.Observe(func(tr Hs.Transition) {
		v.Stats.SetPlaying(tr.Session, tr.To == Ht.Playing)
	})
	return v, nil
}

// Serve runs the HTTP server until ctx is cancelled
func (v *View) Serve(ctx context.Context, addr string) error {
	v.MU.Lock()
	v.server = &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(v.SetupMux(), "haptics"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := v.server
	v.MU.Unlock()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting haptics web server...", slog.String("Port", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not start web server", slog.Any("Error", err))
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Web server shutdown failed", slog.Any("Error", err))
		return err
	}
	return nil
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)

		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}
