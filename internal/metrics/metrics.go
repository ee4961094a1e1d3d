package metrics

import (
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

var (
	WatcherEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codexusage_watcher_events_total",
			Help: "Session file create/write events seen by the watcher",
		},
	)

	BindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codexusage_bindings_total",
			Help: "Binding attempts made by the watcher, by result",
		},
		[]string{"result"},
	)

	PercentLeft = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "codexusage_percent_left",
			Help: "Quota left in the signed-in account's most recent session, by window",
		},
		[]string{"window"},
	)

	ResetTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "codexusage_reset_timestamp_seconds",
			Help: "Unix time at which each window resets",
		},
		[]string{"window"},
	)
)

func init() {
	prometheus.MustRegister(
		WatcherEvents,
		BindingsTotal,
		PercentLeft,
		ResetTime,
	)
}

// Window labels.
const (
	WindowFiveHour = "five_hour"
	WindowWeekly   = "weekly"
)

// Binding results.
const (
	ResultBound     = "bound"
	ResultConflict  = "conflict"
	ResultNoAccount = "no_account"
	ResultError     = "error"
)

// BindingResult maps a binding outcome to its label value.
func BindingResult(err error) string {
	switch {
	case err == nil:
		return ResultBound
	case errors.Is(err, core.ErrSessionAlreadyBoundElsewhere):
		return ResultConflict
	case errors.Is(err, core.ErrNoCurrentAccount):
		return ResultNoAccount
	}
	return ResultError
}

// Sink records watcher activity as prometheus counters.
type Sink struct{}

func (Sink) EventSeen(string) {
	WatcherEvents.Inc()
}

func (Sink) BindingRecorded(core.SessionBinding) {
	BindingsTotal.WithLabelValues(ResultBound).Inc()
}

func (Sink) BindingFailed(_ string, err error) {
	BindingsTotal.WithLabelValues(BindingResult(err)).Inc()
}

func (Sink) UsageResolved(_ string, snap core.UsageSnapshot) {
	setWindow(WindowFiveHour, snap.FiveHour)
	setWindow(WindowWeekly, snap.Weekly)
}

func setWindow(label string, w core.RateLimitWindow) {
	PercentLeft.WithLabelValues(label).Set(w.PercentLeft)
	ResetTime.WithLabelValues(label).Set(float64(w.ResetTimeMs) / 1000)
}

// Server exposes /metrics and /health.
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener
}

func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start binds the listen address and serves in the background. A bind
// failure is returned; later serve errors are only logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info().Str("addr", s.Addr()).Msg("Starting metrics server")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Addr is the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
