package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZentaChain/zentalk-xchat/pkg/crypto"
	"github.com/ZentaChain/zentalk-xchat/pkg/network"
	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

// SendRequest is the body of POST /api/v1/messages
type SendRequest struct {
	Peer string `json:"peer" binding:"required"`
	Text string `json:"text"`
}

// BroadcastRequest is the body of POST /api/v1/broadcasts
type BroadcastRequest struct {
	Text string `json:"text"`
}

// SendResponse describes an accepted send
type SendResponse struct {
	Peer      string `json:"peer"`
	Timestamp int64  `json:"timestamp"` // Milliseconds, the send correlation id
	MessageID string `json:"message_id,omitempty"`
}

// KeyRequest is the body of POST /api/v1/keys. Secret1 is generated when
// empty and Hops falls back to the configured default when absent.
type KeyRequest struct {
	Peer    string  `json:"peer" binding:"required"`
	Secret1 string  `json:"secret1"`
	Secret2 string  `json:"secret2"`
	Hops    *uint64 `json:"hops"`
}

// KeyResponse echoes the secrets so the user can share them out of band
type KeyResponse struct {
	Peer    string `json:"peer"`
	Secret1 string `json:"secret1"`
	Secret2 string `json:"secret2,omitempty"`
	Hops    uint64 `json:"hops"`
}

// handleSendMessage handles POST /api/v1/messages
func (s *Server) handleSendMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	s.send(c, req.Peer, req.Text, false)
}

// handleBroadcast handles POST /api/v1/broadcasts
func (s *Server) handleBroadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	s.send(c, "", req.Text, true)
}

func (s *Server) send(c *gin.Context, peer, text string, broadcast bool) {
	sentAt, err := s.sender.SendMessage(peer, text, broadcast)

	resp := SendResponse{Peer: peer, Timestamp: sentAt}
	if s.recorder != nil {
		resp.MessageID = s.recorder.RecordOutgoing(peer, text, broadcast, sentAt).MessageID
	}

	if err != nil {
		log.Printf("❌ Send to %q failed: %v", peer, err)
		c.JSON(sendStatus(err), ErrorResponse{
			Error:   "Send failed",
			Message: err.Error(),
			Code:    "send_failed",
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: resp})
}

// handleKeyRequest handles POST /api/v1/keys
func (s *Server) handleKeyRequest(c *gin.Context) {
	var req KeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	if req.Secret1 == "" {
		secret, err := crypto.NewSecret(s.config.SecretLength)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Secret generation failed",
				Message: err.Error(),
			})
			return
		}
		req.Secret1 = secret
	}

	hops := s.config.DefaultHops
	if req.Hops != nil {
		hops = *req.Hops
	}
	if hops > protocol.MaxUint48 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid hops",
			Message: fmt.Sprintf("hops must be at most %d", uint64(protocol.MaxUint48)),
		})
		return
	}

	err := s.sender.SendKey(req.Peer, req.Secret1, req.Secret2, hops)
	if s.recorder != nil {
		s.recorder.RecordKeyRequest(req.Peer, req.Secret1, req.Secret2, hops, err == nil)
	}

	if err != nil {
		log.Printf("❌ Key request for %q failed: %v", req.Peer, err)
		c.JSON(sendStatus(err), ErrorResponse{
			Error:   "Key request failed",
			Message: err.Error(),
			Code:    "send_failed",
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data: KeyResponse{
			Peer:    req.Peer,
			Secret1: req.Secret1,
			Secret2: req.Secret2,
			Hops:    hops,
		},
	})
}

// sendStatus maps a send error to an HTTP status. Oversized frames are the
// caller's fault; everything else is the daemon being unreachable.
func sendStatus(err error) int {
	if errors.Is(err, network.ErrFrameTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadGateway
}
