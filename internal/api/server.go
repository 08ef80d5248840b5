// Package api serves the read-only status API of a framebridge process.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/framebridge/internal/api/models"
	"github.com/smazurov/framebridge/internal/devices"
	"github.com/smazurov/framebridge/internal/events"
	"github.com/smazurov/framebridge/internal/logging"
	"github.com/smazurov/framebridge/internal/metrics"
	"github.com/smazurov/framebridge/internal/tracking"
	"github.com/smazurov/framebridge/internal/version"
)

// Options configures the status server.
type Options struct {
	// Bus feeds the channel and device state. Nil leaves both empty.
	Bus *events.Bus
	// DevicePattern is the discovery glob served by /api/devices.
	DevicePattern string
	// Tracking reports the session state of the track command, when set.
	Tracking func() tracking.Status
	// Basic auth is enabled when both are set. Health and metrics stay open.
	AuthUsername string
	AuthPassword string
}

// Server is the Huma status API on a Go 1.22 ServeMux.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    Options
	state      state
	unsub      func()
	started    time.Time
	logger     *slog.Logger
}

// NewServer builds the API and subscribes it to opts.Bus. Call Stop to unsubscribe.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("framebridge", version.Get().Version)
	config.Info.Description = "Status of a shared-memory frame producer or consumer"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {Type: "http", Scheme: "basic"},
	}

	s := &Server{
		api:     humago.New(mux, config),
		mux:     mux,
		options: opts,
		started: time.Now(),
		logger:  logging.GetLogger("api"),
	}
	s.unsub = s.state.subscribe(opts.Bus)

	s.api.UseMiddleware(corsMiddleware)
	s.api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		s.api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Huma only routes registered methods, so preflights need their own handler.
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Accept")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("GET /metrics", metrics.Handler())

	s.registerRoutes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start listens on addr and serves until Stop. It returns nil after Stop.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting status API", "addr", ln.Addr().String())
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes the listener and open connections, including event streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping status API")
	s.unsub()
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{Status: "ok", Message: "API is healthy"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Status",
		Description: "Frame counters, channel and device state, and tracking progress",
		Tags:        []string{"status"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		ch, dev := s.state.snapshot()
		body := models.StatusData{
			Uptime:  time.Since(s.started).Truncate(time.Second).String(),
			Metrics: metrics.Current(),
			Channel: ch,
			Device:  dev,
		}
		if s.options.Tracking != nil {
			st := s.options.Tracking()
			body.Tracking = &st
		}
		return &models.StatusResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "Devices",
		Description: "Capture devices matching the discovery pattern",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.DevicesResponse, error) {
		pattern := s.options.DevicePattern
		if pattern == "" {
			pattern = devices.DefaultPattern
		}
		def, _ := devices.FindDefault(pattern)
		return &models.DevicesResponse{
			Body: models.DevicesData{
				Devices: devices.List(pattern),
				Default: def,
				Pattern: pattern,
			},
		}, nil
	})

	s.registerLogRoutes()
	s.registerEventRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
