// Package server exposes the tribunal engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/solsafe/tribunal/pkgs/tribunal"
)

// Server wires the consensus engine behind a chi router.
type Server struct {
	Logger     *zap.Logger
	HttpServer *http.Server
	Router     chi.Router
	Engine     *tribunal.Engine
}

func New(engine *tribunal.Engine, logger *zap.Logger) *Server {
	s := &Server{
		Logger: logger,
		Router: chi.NewRouter(),
		Engine: engine,
	}
	RegisterRoutes(s)
	return s
}

// Start runs the http server, blocking until it exits.
func (s *Server) Start(port uint16) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10_000 * time.Millisecond,
	}
	s.HttpServer = srv
	s.Logger.Info("server listening for incoming requests", zap.Uint16("port", port))
	return s.HttpServer.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.HttpServer == nil {
		return nil
	}
	return s.HttpServer.Shutdown(ctx)
}
