package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// requireHistory answers 503 when no history database is attached
func (s *Server) requireHistory(c *gin.Context) {
	if s.history == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "History disabled",
			Message: "The bridge runs without a history database",
		})
		return
	}
	c.Next()
}

// handleContacts handles GET /api/v1/contacts
func (s *Server) handleContacts(c *gin.Context) {
	contacts, err := s.history.GetAllContacts()
	if err != nil {
		s.historyError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: contacts})
}

// handleConversations handles GET /api/v1/conversations
func (s *Server) handleConversations(c *gin.Context) {
	conversations, err := s.history.GetConversations()
	if err != nil {
		s.historyError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: conversations})
}

// handleConversationMessages handles GET /api/v1/conversations/:peer/messages
func (s *Server) handleConversationMessages(c *gin.Context) {
	s.listMessages(c, c.Param("peer"))
}

// handleBroadcastMessages handles GET /api/v1/broadcasts. Broadcasts are
// stored under the empty peer name, which no path parameter can carry.
func (s *Server) handleBroadcastMessages(c *gin.Context) {
	s.listMessages(c, "")
}

func (s *Server) listMessages(c *gin.Context, peer string) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit <= 0 || limit > maxPageSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid limit",
			Message: "limit must be a number between 1 and " + strconv.Itoa(maxPageSize),
		})
		return
	}

	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid offset",
			Message: "offset must be a non-negative number",
		})
		return
	}

	messages, err := s.history.GetConversationMessages(peer, limit, offset)
	if err != nil {
		s.historyError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: messages})
}

// handleMarkRead handles POST /api/v1/conversations/:peer/read
func (s *Server) handleMarkRead(c *gin.Context) {
	if err := s.history.MarkConversationRead(c.Param("peer")); err != nil {
		s.historyError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// handleKeyRequests handles GET /api/v1/keys/:peer
func (s *Server) handleKeyRequests(c *gin.Context) {
	requests, err := s.history.GetKeyRequests(c.Param("peer"))
	if err != nil {
		s.historyError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: requests})
}

func (s *Server) historyError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "History query failed",
		Message: err.Error(),
	})
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
