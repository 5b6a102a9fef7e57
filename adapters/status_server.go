package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"remo-humidifier/application"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const statusShutdownTimeout = 5 * time.Second

type StatusProvider interface {
	Snapshot() application.Snapshot
	RunCycle(ctx context.Context) (application.CycleResult, error)
}

type StatusServerParams struct {
	Addr     string
	Provider StatusProvider

	Log zerolog.Logger
}

// StatusServer exposes the controller snapshot and a manual cycle trigger over HTTP.
type StatusServer struct {
	params StatusServerParams
	srv    *http.Server

	log zerolog.Logger
}

func NewStatusServer(params StatusServerParams) (*StatusServer, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("status provider is required")
	}
	if params.Addr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	s := &StatusServer{params: params, log: params.Log}
	s.srv = &http.Server{
		Addr:              params.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *StatusServer) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/cycle", s.handleCycle).Methods(http.MethodPost)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *StatusServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.params.Addr).Msg("status server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), statusShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("status server stopped")
	return nil
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.params.Provider.Snapshot())
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *StatusServer) handleCycle(w http.ResponseWriter, r *http.Request) {
	// a client hanging up must not split the signal pair
	res, err := s.params.Provider.RunCycle(context.WithoutCancel(r.Context()))
	if errors.Is(err, application.ErrCycleInProgress) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	// a failed cycle is still reported with 200, its error is part of the result
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
