// Package api provides the local HTTP API a user interface uses to drive the
// xchat bridge: sending messages and key requests, reading history and
// subscribing to decoded events over a websocket.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ZentaChain/zentalk-xchat/pkg/crypto"
	"github.com/ZentaChain/zentalk-xchat/pkg/metrics"
	"github.com/ZentaChain/zentalk-xchat/pkg/network"
	"github.com/ZentaChain/zentalk-xchat/pkg/storage"
)

// Sender is the part of the dispatcher the API drives
type Sender interface {
	SendMessage(peer, text string, broadcast bool) (int64, error)
	SendKey(peer, secret1, secret2 string, hopLimit uint64) error
	State() network.State
}

var _ Sender = (*network.Dispatcher)(nil)

// Server represents the HTTP API server for the bridge
type Server struct {
	sender     Sender
	hub        *Hub
	history    *storage.MessageDB
	recorder   *storage.Recorder
	metrics    http.Handler
	router     *gin.Engine
	config     *Config
	httpServer *http.Server
}

// Config holds server configuration
type Config struct {
	Listen         string
	AllowedOrigins []string // Browser origins allowed on top of localhost
	DefaultHops    uint64
	SecretLength   int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8431",
		DefaultHops:  3,
		SecretLength: crypto.DefaultSecretLength,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// NewServer creates a new HTTP API server. hub may be nil, in which case
// the events endpoint is not served.
func NewServer(sender Sender, hub *Hub, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		sender: sender,
		hub:    hub,
		router: gin.New(),
		config: config,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// AttachHistory enables the history endpoints and records every send
func (s *Server) AttachHistory(db *storage.MessageDB, recorder *storage.Recorder) {
	s.history = db
	s.recorder = recorder
}

// AttachMetrics serves reg on /metrics
func (s *Server) AttachMetrics(reg *prometheus.Registry) {
	s.metrics = metrics.Handler(reg)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Only processes on this machine may drive the bridge
	s.router.Use(LoopbackOnlyMiddleware())

	s.router.Use(CORSMiddleware(s.config.AllowedOrigins))

	// Request logging
	s.router.Use(LoggingMiddleware())

	// Error recovery
	s.router.Use(gin.Recovery())
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		send := v1.Group("", JSONOnlyMiddleware())
		{
			send.POST("/messages", s.handleSendMessage)
			send.POST("/broadcasts", s.handleBroadcast)
			send.POST("/keys", s.handleKeyRequest)
		}

		history := v1.Group("", s.requireHistory)
		{
			history.GET("/contacts", s.handleContacts)
			history.GET("/conversations", s.handleConversations)
			history.GET("/conversations/:peer/messages", s.handleConversationMessages)
			history.GET("/broadcasts", s.handleBroadcastMessages)
			history.POST("/conversations/:peer/read", s.handleMarkRead)
			history.GET("/keys/:peer", s.handleKeyRequests)
		}

		if s.hub != nil {
			v1.GET("/events", s.handleEvents)
		}
	}

	// Outside versioning
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", s.handleMetrics)
}

// Start serves the API until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌐 HTTP API listening on %s", s.config.Listen)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down HTTP API server...")
	if s.hub != nil {
		s.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
