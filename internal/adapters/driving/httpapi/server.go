// Package httpapi serves the FAQ retrieval API over HTTP, server-sent
// events and WebSocket.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driving"
	"github.com/custodia-labs/askme/internal/logger"
)

// ServiceName is reported by the landing route.
const ServiceName = "askme"

const (
	// maxUploadBytes bounds FAQ upload bodies.
	maxUploadBytes = 32 << 20

	shutdownTimeout = 10 * time.Second
)

// Config wires the server to the core services.
type Config struct {
	Tenants   driving.TenantService
	FAQs      driving.FAQService
	Ask       driving.AskService
	Retrieval driving.RetrievalService

	// Settings supplies the admin token and rate limits.
	Settings domain.ServerSettings

	// DefaultMode is reported by the status route.
	DefaultMode domain.DeliveryMode

	// Model names the LLM in use, empty when LLM delivery is unavailable.
	Model string

	Version string
}

// Server is the HTTP transport.
type Server struct {
	tenants    driving.TenantService
	faqs       driving.FAQService
	ask        driving.AskService
	retrieval  driving.RetrievalService
	adminToken string
	limiters   *tenantLimiters
	mode       domain.DeliveryMode
	model      string
	version    string
	upgrader   websocket.Upgrader
	handler    http.Handler
}

// NewServer creates the HTTP transport.
func NewServer(cfg Config) *Server {
	s := &Server{
		tenants:    cfg.Tenants,
		faqs:       cfg.FAQs,
		ask:        cfg.Ask,
		retrieval:  cfg.Retrieval,
		adminToken: cfg.Settings.AdminToken,
		limiters:   newTenantLimiters(cfg.Settings.RateLimit, cfg.Settings.RateBurst),
		mode:       cfg.DefaultMode,
		model:      cfg.Model,
		version:    cfg.Version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleLanding)
	mux.HandleFunc("GET /chatbot/status", s.handleStatus)
	mux.HandleFunc("POST /api/tenants", s.requireAdmin(s.handleCreateTenant))
	mux.HandleFunc("POST /api/faqs", s.requireTenant(s.handleUploadFAQs))
	mux.HandleFunc("GET /api/faqs", s.requireTenant(s.handleListFAQs))
	mux.HandleFunc("POST /api/ask", s.requireTenant(s.handleAsk))
	mux.HandleFunc("GET /api/ask/ws", s.requireTenant(s.handleAskWebSocket))
	s.handler = withRequestID(mux)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
