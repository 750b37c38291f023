// Package api exposes a bin's state and manual commands over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/rewired-gh/smartbin/internal/engine"
	"github.com/rewired-gh/smartbin/internal/logger"
	"github.com/rewired-gh/smartbin/internal/models"
)

// Controller is the engine surface the API drives. *engine.Engine implements it.
type Controller interface {
	Snapshot() models.BinState
	Phase() engine.Phase
	UpdateFields(u engine.FieldUpdate) (models.BinState, error)
	EmptyBin(ctx context.Context) models.BinState
	Reset() models.BinState
	SetTargetCategory(c models.Category) (models.BinState, error)
	ClearEvents() models.BinState
	RemoveEvent(i int) (models.BinState, error)
}

// NewRouter registers every route against ctrl.
func NewRouter(ctrl Controller) *mux.Router {
	h := &handler{ctrl: ctrl}
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods("GET")

	bin := r.PathPrefix("/api/bin").Subrouter()
	bin.HandleFunc("", h.getBin).Methods("GET")
	bin.HandleFunc("", h.patchBin).Methods("PATCH")
	bin.HandleFunc("/empty", h.emptyBin).Methods("POST")
	bin.HandleFunc("/reset", h.resetBin).Methods("POST")
	bin.HandleFunc("/target", h.setTarget).Methods("PUT")
	bin.HandleFunc("/events", h.clearEvents).Methods("DELETE")
	bin.HandleFunc("/events/{index:[0-9]+}", h.removeEvent).Methods("DELETE")

	return r
}

// Handler wraps the router with CORS and request logging.
func Handler(ctrl Controller, allowedOrigins []string) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.LoggingHandler(logWriter{}, cors(NewRouter(ctrl)))
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("HTTP API stopped")
	return nil
}

// logWriter feeds access log lines into the structured logger.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logger.Info("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
