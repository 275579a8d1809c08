package pmoupnp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/netutils"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/pmolog"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/ssdp"
	log "github.com/sirupsen/logrus"
)

const DefaultHTTPPort = 1400

const sweepInterval = 30 * time.Second

type Server struct {
	name     string
	HTTPPort int
	baseURL  string

	Logger  *log.Logger
	httpSrv *http.Server
	mux     *http.ServeMux

	device    *Device
	metrics   http.Handler
	weblogger *pmolog.WebLogger
	ssdp      *ssdp.SSDPServer

	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
}

type ServerOption func(*Server)

func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		s.Logger = l
	}
}

func WithHTTPPort(port int) ServerOption {
	return func(s *Server) {
		s.HTTPPort = port
	}
}

// WithBaseURL sets the address published in descriptions and SSDP
// announcements.
func WithBaseURL(url string) ServerOption {
	return func(s *Server) {
		s.baseURL = url
	}
}

func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = h
	}
}

func WithWebLogger(wl *pmolog.WebLogger) ServerOption {
	return func(s *Server) {
		s.weblogger = wl
	}
}

// WithSSDP announces the device with srv once the server is started.
func WithSSDP(srv *ssdp.SSDPServer) ServerOption {
	return func(s *Server) {
		s.ssdp = srv
	}
}

func NewServer(name string, device *Device, opts ...ServerOption) (*Server, error) {
	s := &Server{
		name:     name,
		HTTPPort: DefaultHTTPPort,
		Logger:   log.StandardLogger(),
		device:   device,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.baseURL == "" {
		ip, err := netutils.GuessLocalIP()
		if err != nil {
			return nil, fmt.Errorf("unable to determine local IP: %w", err)
		}
		s.baseURL = fmt.Sprintf("http://%s", net.JoinHostPort(ip, fmt.Sprint(s.HTTPPort)))
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/", s.ServeDebugIndex)
	s.mux.HandleFunc(device.DescriptionURL(), ServeXML(device.ToXMLElement))
	device.Service().RegisterURLs(s.mux)

	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
	if s.weblogger != nil {
		s.weblogger.Mount(s.mux)
	}

	return s, nil
}

func (s *Server) Name() string   { return s.name }
func (s *Server) TypeID() string { return "Server" }

func (s *Server) BaseURL() string { return s.baseURL }

func (s *Server) Device() *Device { return s.device }

// Handler returns the HTTP routes of the server, for tests or for an
// external listener.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Start() error {
	var err error

	s.startOnce.Do(func() {
		var ln net.Listener
		ln, err = net.Listen("tcp", fmt.Sprintf(":%d", s.HTTPPort))
		if err != nil {
			err = fmt.Errorf("cannot listen on port %d: %w", s.HTTPPort, err)
			return
		}

		s.httpSrv = &http.Server{
			Handler:           s.mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel

		go s.device.Service().Eventing().Run(ctx, sweepInterval)

		go func() {
			if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Errorf("❌ server error: %v", err)
			}
		}()

		if s.ssdp != nil {
			if err := s.ssdp.Start(ctx); err != nil {
				s.Logger.Warnf("❌ SSDP disabled: %v", err)
			} else {
				s.ssdp.AddDevice(s.device.SSDPDevice(s.baseURL))
			}
		}

		s.Logger.Infof("✅ UPnP server started on %s", s.baseURL)
	})

	return err
}

func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if s.ssdp != nil {
			s.ssdp.RemoveDevice(s.device.UDN())
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.httpSrv != nil {
			s.Logger.Info("✅ Shutting down UPnP server...")
			err = s.httpSrv.Shutdown(ctx)
		}
	})
	return err
}

func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	// attente d’annulation du contexte
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}
