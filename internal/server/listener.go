// Package server hosts webmon's loopback HTTP endpoints: the block page
// browsers are redirected to and the control API the CLI talks to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// listener runs an http.Server on a fixed address. Start is idempotent and
// Stop releases the port.
type listener struct {
	name    string
	addr    string
	handler http.Handler
	logger  *zap.Logger

	mu    sync.Mutex
	srv   *http.Server
	bound net.Addr
	done  chan struct{}
}

func (l *listener) Name() string {
	return l.name
}

// Start binds the port and serves in the background. Starting a running
// server is a no-op.
func (l *listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("%s: failed to listen on %s: %w", l.name, l.addr, err)
	}

	srv := &http.Server{
		Handler:           l.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("server stopped unexpectedly", zap.String("server", l.name), zap.Error(err))
		}
	}()

	l.srv = srv
	l.bound = ln.Addr()
	l.done = done
	l.logger.Info("server listening", zap.String("server", l.name), zap.String("addr", l.bound.String()))
	return nil
}

// Stop shuts the server down and waits for the serve loop to exit.
// Stopping a stopped server is a no-op.
func (l *listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	srv, done := l.srv, l.done
	l.srv, l.bound, l.done = nil, nil, nil
	l.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	if err != nil {
		// Deadline hit; drop remaining connections.
		_ = srv.Close()
	}
	<-done
	l.logger.Info("server stopped", zap.String("server", l.name))
	return err
}

// Addr returns the bound address, or "" when stopped.
func (l *listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bound == nil {
		return ""
	}
	return l.bound.String()
}

// Running reports whether the server is bound.
func (l *listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.srv != nil
}

// requestLogger logs each request at debug level.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
