// Package admin serves the results of a finished run over HTTP.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/propagation"
	"wifi-rssi-sim/internal/sim"
)

type Server struct {
	Sim     *sim.Simulator
	metrics http.Handler
	tpl     *template.Template
	logger  *slog.Logger
}

//go:embed templates/index.html
var content embed.FS

// NewServer serves s. metrics may be nil to disable /metrics.
func NewServer(s *sim.Simulator, metrics http.Handler, logger *slog.Logger) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Sim: s, metrics: metrics, tpl: tpl, logger: logger}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/flows", s.handleFlows)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/overrides", s.handleOverrides)
	mux.HandleFunc("/endpoints", s.handleEndpoints)
	mux.HandleFunc("/rssi", s.handleRSSI)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Start listens on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("admin server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	cfg := s.Sim.Config()
	data := struct {
		Name        string
		Description string
		RunID       string
		Endpoints   []sim.EndpointInfo
		Overrides   []sim.OverrideInfo
		Flows       any
		Report      string
	}{
		Name:        cfg.Name,
		Description: cfg.Description,
		RunID:       s.Sim.RunID(),
		Endpoints:   s.Sim.Endpoints(),
		Overrides:   s.Sim.Overrides(),
	}
	if res := s.Sim.Result(); res != nil {
		data.Flows = res.Flows
		var b strings.Builder
		if err := flowmon.WriteText(&b, res.Report); err == nil {
			data.Report = b.String()
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.logger.Error("render index", "error", err)
	}
}

func (s *Server) handleFlows(w http.ResponseWriter, r *http.Request) {
	res := s.Sim.Result()
	if res == nil {
		http.Error(w, "simulation has not finished", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, res.Flows)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res := s.Sim.Result()
	if res == nil {
		http.Error(w, "simulation has not finished", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := flowmon.WriteText(w, res.Report); err != nil {
		s.logger.Error("render report", "error", err)
	}
}

func (s *Server) handleOverrides(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Overrides())
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Endpoints())
}

func (s *Server) handleRSSI(w http.ResponseWriter, r *http.Request) {
	sender := r.URL.Query().Get("sender")
	receiver := r.URL.Query().Get("receiver")
	if sender == "" || receiver == "" {
		http.Error(w, "sender and receiver are required", http.StatusBadRequest)
		return
	}
	rx, err := s.Sim.RxPower(sender, receiver)
	if errors.Is(err, propagation.ErrUnknownEndpoint) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"sender": sender, "receiver": receiver, "rx_power_dbm": rx})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
