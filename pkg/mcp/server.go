package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/chipper/pkg/engine"
	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/rule"
	"github.com/macropower/chipper/pkg/version"
)

// StdioAddress selects the stdio transport in [Server.Serve].
const StdioAddress = "-"

var (
	// ErrTimeRuleActive is returned when a selection cannot be remembered
	// because a time rule decides the preference.
	ErrTimeRuleActive = errors.New("time rule active")
	// ErrNoPreferences is returned when a selection cannot be remembered
	// because the server has no preference store.
	ErrNoPreferences = errors.New("no preference store")
)

// Handler answers engine messages. It is implemented by
// [engine.Controller].
type Handler interface {
	Handle(ctx context.Context, req engine.Request) (engine.Response, error)
}

var _ Handler = (*engine.Controller)(nil)

// Preferences persists remembered selections.
type Preferences interface {
	ActiveTimePreference(ctx context.Context) (*rule.TimeRule, error)
	SetGlobal(ctx context.Context, value string) error
}

// Server serves the engine's messages as MCP tools.
type Server struct {
	handler Handler
	prefs   Preferences
	server  *mcp.Server
	tracer  trace.Tracer
}

// ServerOpt configures a [Server].
type ServerOpt func(*Server)

// WithPreferences enables remembering selections in prefs.
func WithPreferences(prefs Preferences) ServerOpt {
	return func(s *Server) {
		s.prefs = prefs
	}
}

// WithTracer sets the tracer used for tool call spans.
func WithTracer(tracer trace.Tracer) ServerOpt {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// NewServer creates a new [Server] and registers its tools.
func NewServer(handler Handler, opts ...ServerOpt) *Server {
	s := &Server{
		handler: handler,
		tracer:  otel.Tracer("mcp"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version.GetVersion(),
	}, &mcp.ServerOptions{
		Instructions: instructions,
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_candidates",
		Description: "List the chips the page currently shows, in presentation order, and the temporary fallback if one is in use.",
	}, WithTracing(s.tracer, s.handleGetCandidates))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "select_candidate",
		Description: "Select a chip on the page by its EXACT text, as listed by get_candidates.",
	}, WithTracing(s.tracer, s.handleSelectCandidate))

	return s
}

// Server returns the underlying MCP server.
func (s *Server) Server() *mcp.Server {
	return s.server
}

// Serve serves the tools until ctx is done. An empty address or
// [StdioAddress] serves over stdio; any other address is listened on for
// streamable HTTP.
func (s *Server) Serve(ctx context.Context, address string) error {
	log.WithContext(ctx).InfoContext(ctx, "starting MCP server", slog.String("address", address))

	if address == "" || address == StdioAddress {
		err := s.server.Run(ctx, &mcp.LoggingTransport{
			Transport: &mcp.StdioTransport{},
			Writer:    os.Stderr,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("serve stdio: %w", err)
		}

		return nil
	}

	err := s.serveHTTP(ctx, address)
	if err != nil {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}

func (s *Server) serveHTTP(ctx context.Context, address string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	server := &http.Server{
		Addr:    address,
		Handler: handler,

		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}

		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	}
}
