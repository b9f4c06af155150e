package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/nmibc-risk-mcp/internal/config"
)

// transportRunner serves one mcp.Server until ctx is cancelled
type transportRunner interface {
	run(ctx context.Context, server *mcp.Server) error
	name() string
}

// newTransportRunner picks the transport named in the configuration
func newTransportRunner(cfg *config.LiteConfig, logger *logrus.Logger) (transportRunner, error) {
	switch strings.ToLower(cfg.Transport) {
	case "", "stdio":
		return stdioRunner{logger: logger}, nil
	case "http", "streamable-http":
		return httpRunner{port: cfg.HTTPPort, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported transport: %s", cfg.Transport)
	}
}

type stdioRunner struct {
	logger *logrus.Logger
}

func (r stdioRunner) name() string { return "stdio" }

func (r stdioRunner) run(ctx context.Context, server *mcp.Server) error {
	r.logger.Info("Serving MCP over stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

type httpRunner struct {
	port   int
	logger *logrus.Logger
}

func (r httpRunner) name() string { return "http" }

// run serves the streamable HTTP transport on /mcp
func (r httpRunner) run(ctx context.Context, server *mcp.Server) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", r.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.WithField("addr", httpServer.Addr).Info("Serving MCP over streamable HTTP")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
