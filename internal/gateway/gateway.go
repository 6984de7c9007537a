// Package gateway exposes command execution over HTTP and websockets. Every
// HTTP request and every websocket session gets its own connection to the
// server.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/zap"

	"github.com/luma/respkit/client"
)

type Options struct {
	// Server commands are sent to
	Host string
	Port int

	Client client.Options

	// ExecTimeout bounds every exchange, zero means no bound
	ExecTimeout time.Duration

	DebugHTTP bool

	Log *zap.Logger
}

type Gateway struct {
	options  Options
	router   *gin.Engine
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func New(options Options) *Gateway {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	g := &Gateway{
		options: options,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		log: log.Named("gateway"),
	}

	g.router = setupRouter(options.DebugHTTP, g.log)

	// Ping test
	g.router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	g.router.GET("/metrics", func(c *gin.Context) {
		metrics.WritePrometheus(c.Writer, true)
	})

	g.router.POST("/v1/exec", g.exec)
	g.router.GET("/ws", g.console)

	return g
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. The listener sets SO_REUSEPORT so several gateways can share
// a port.
func (g *Gateway) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := reuseport.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return g.Serve(ctx, listener)
}

func (g *Gateway) Serve(ctx context.Context, listener net.Listener) error {
	s := &http.Server{
		Handler: g.router,
	}

	served := make(chan error, 1)

	// Serving in a goroutine so that it won't block the graceful shutdown
	// handling below
	go func() {
		served <- s.Serve(listener)
	}()

	g.log.Info("Listening", zap.String("addr", listener.Addr().String()))

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err

	case <-ctx.Done():
	}

	g.log.Info("Shutting down gracefully")

	// The server has 5 seconds to finish the requests it is currently
	// handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.SetKeepAlivesEnabled(false)

	if err := s.Shutdown(shutdownCtx); err != nil {
		g.log.Error("Http server forced to shutdown", zap.Error(err))
		return err
	}

	return nil
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - RFC3339 with UTC time format.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping", "/metrics"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}
