package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type ServerConfig struct {
	Addr              string
	HandlerTimeout    time.Duration
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
}

type HTTPServer struct {
	httpServer *http.Server
}

func NewHTTPServer(cfg ServerConfig, handler http.Handler) HTTPServer {
	if cfg.HandlerTimeout > 0 {
		handler = http.TimeoutHandler(
			handler, cfg.HandlerTimeout, `{"error":"unavailable"}`,
		)
	}
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return HTTPServer{s}
}

// Run listens on the configured address and serves until Close.
// stopFn is called when serving ends for any reason.
func (s HTTPServer) Run(stopFn context.CancelFunc) {
	const op = "HTTPServer.Run"

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		defer stopFn()
		slog.Error("failed to listen", "op", op, "err", err)
		return
	}
	s.Serve(ln, stopFn)
}

func (s HTTPServer) Serve(ln net.Listener, stopFn context.CancelFunc) {
	const op = "HTTPServer.Serve"
	log := slog.With("op", op)

	defer stopFn()
	log.Info("http server is listening", "addr", ln.Addr().String())
	err := s.httpServer.Serve(ln)
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		log.Error("unexpected servers shutdown", "err", err)
	}
}

func (s HTTPServer) Close(ctx context.Context) {
	const op = "HTTPServer.Close"
	log := slog.With("op", op)

	log.Info("closing http server...")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		log.Error("failed to shutdown gracefully", "err", err)
	}
	log.Info("http server is closed")
}
