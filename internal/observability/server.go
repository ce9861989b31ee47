package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// MetricsServer serves /metrics and /healthz.
type MetricsServer struct {
	addr string

	runMutex sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

func NewMetricsServer(addr string) *MetricsServer {
	return &MetricsServer{addr: addr}
}

func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *MetricsServer) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.server != nil {
		return nil
	}

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})

	server, done := s.server, s.done
	go func() {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.getLogEntry().WithError(err).Error("metrics server failed")
		}
	}()
	s.getLogEntry().WithField("addr", listener.Addr().String()).Info("metrics server started")
	return nil
}

func (s *MetricsServer) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	server, done := s.server, s.done
	s.server = nil
	s.runMutex.Unlock()
	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the bound address once started.
func (s *MetricsServer) Addr() string {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *MetricsServer) getLogEntry() *log.Entry {
	return log.WithField("object", "MetricsServer")
}
