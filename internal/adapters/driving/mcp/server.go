package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medingest/internal/logger"
)

// Version is reported to clients when no build version is supplied.
const Version = "0.1.0"

// EndpointPath is where the streamable HTTP transport is mounted.
const EndpointPath = "/mcp"

const (
	defaultShutdownTimeout = 5 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// instructions tell the client model how the tools fit together.
const instructions = "Use the search tool to find ingested medical documents or extracted " +
	"entities (condition, medication, provider, date). Pass a document_id from a result " +
	"to get_document for its entities, or read medingest://documents/{documentId} for the " +
	"normalised text."

// Option configures a Server.
type Option func(*options)

type options struct {
	version         string
	shutdownTimeout time.Duration
}

// WithVersion sets the version advertised during initialisation.
// An empty value keeps the default.
func WithVersion(v string) Option {
	return func(o *options) {
		if v != "" {
			o.version = v
		}
	}
}

// WithShutdownTimeout bounds how long RunHTTP waits for open sessions
// when its context ends.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// Server exposes search and document retrieval over MCP.
type Server struct {
	ports  *Ports
	server *mcp.Server
	opts   options
}

// NewServer validates ports and registers the search tools and document
// resources.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	o := options{version: Version, shutdownTimeout: defaultShutdownTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "medingest", Version: o.version},
			&mcp.ServerOptions{Instructions: instructions},
		),
		opts: o,
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves a single client over stdin/stdout until ctx is done or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP transport mounted at EndpointPath.
// Every session shares the same server and its ports.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil))
	return mux
}

// RunHTTP listens on addr and serves Handler until ctx is done, then
// drains open requests for at most the shutdown timeout.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("MCP server listening on %s%s", ln.Addr(), EndpointPath)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("MCP server shutdown: %v", err)
		_ = srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
