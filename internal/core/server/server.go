// Package server runs the HTTP API and the gRPC health endpoint and shuts
// both down gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultShutdownTimeout caps graceful shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// ServiceName is the gRPC health service name reported alongside "".
const ServiceName = "alertkeeper"

// Options configures a Server.
type Options struct {
	HTTPAddr        string
	GRPCHealthAddr  string // empty disables the gRPC health server
	ShutdownTimeout time.Duration
	Logger          zerolog.Logger
}

// Server owns the HTTP and gRPC listeners.
type Server struct {
	opts   Options
	http   *http.Server
	grpc   *grpc.Server
	health *health.Server

	mu        sync.Mutex
	httpAddr  net.Addr
	grpcAddr  net.Addr
	listening chan struct{}
}

// New returns a server for handler.
func New(handler http.Handler, opts Options) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{
		opts: opts,
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listening: make(chan struct{}),
	}

	if opts.GRPCHealthAddr != "" {
		s.grpc = grpc.NewServer()
		s.health = health.NewServer()
		grpc_health_v1.RegisterHealthServer(s.grpc, s.health)
	}
	return s, nil
}

// Run serves until ctx is cancelled or a listener fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.opts.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to bind http: %w", err)
	}

	var grpcLn net.Listener
	if s.grpc != nil {
		grpcLn, err = net.Listen("tcp", s.opts.GRPCHealthAddr)
		if err != nil {
			httpLn.Close()
			return fmt.Errorf("failed to bind grpc health: %w", err)
		}
	}

	s.mu.Lock()
	s.httpAddr = httpLn.Addr()
	if grpcLn != nil {
		s.grpcAddr = grpcLn.Addr()
	}
	s.mu.Unlock()
	close(s.listening)

	errCh := make(chan error, 2)
	go func() {
		s.opts.Logger.Info().Str("addr", httpLn.Addr().String()).Msg("http server listening")
		if err := s.http.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if s.grpc != nil {
		s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		s.health.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
		go func() {
			s.opts.Logger.Info().Str("addr", grpcLn.Addr().String()).Msg("grpc health server listening")
			if err := s.grpc.Serve(grpcLn); err != nil {
				errCh <- fmt.Errorf("grpc health server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.opts.Logger.Info().Msg("shutting down")
	case runErr = <-errCh:
		s.opts.Logger.Error().Err(runErr).Msg("listener failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return multierr.Append(runErr, s.shutdown(shutdownCtx))
}

// shutdown reports NOT_SERVING first so probes stop routing traffic, then
// drains HTTP and stops gRPC. Forced stop after ctx expires.
func (s *Server) shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.Shutdown()
	}

	err := s.http.Shutdown(ctx)
	if err != nil {
		err = multierr.Append(fmt.Errorf("http shutdown: %w", err), s.http.Close())
	}

	if s.grpc != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.grpc.Stop()
			err = multierr.Append(err, fmt.Errorf("grpc graceful shutdown timeout, forced stop"))
		}
	}
	return err
}

// Addrs returns the bound HTTP and gRPC addresses once Run is listening.
// The gRPC address is nil when the health server is disabled.
func (s *Server) Addrs(ctx context.Context) (httpAddr, grpcAddr net.Addr, err error) {
	select {
	case <-s.listening:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr, s.grpcAddr, nil
}
