package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZentaChain/zentalk-xchat/pkg/network"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status      string `json:"status"`
	Dispatcher  string `json:"dispatcher"`
	History     bool   `json:"history"`
	Subscribers int    `json:"subscribers"`
	Timestamp   int64  `json:"timestamp"`
}

// handleHealth handles GET /health. The bridge is healthy once the
// dispatcher has greeted the daemon.
func (s *Server) handleHealth(c *gin.Context) {
	state := s.sender.State()

	resp := HealthResponse{
		Status:     "healthy",
		Dispatcher: state.String(),
		History:    s.history != nil,
		Timestamp:  time.Now().Unix(),
	}
	if s.hub != nil {
		resp.Subscribers = s.hub.ClientCount()
	}

	status := http.StatusOK
	if state != network.StateRunning {
		resp.Status = "starting"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}

// handleMetrics handles GET /metrics
func (s *Server) handleMetrics(c *gin.Context) {
	if s.metrics == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Metrics disabled"})
		return
	}
	s.metrics.ServeHTTP(c.Writer, c.Request)
}

// handleEvents handles GET /api/v1/events
func (s *Server) handleEvents(c *gin.Context) {
	s.hub.ServeWS(c.Writer, c.Request)
}
