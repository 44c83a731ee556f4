package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
	"github.com/techagentng/sakany/server/response"
)

const maxHistoryPage = 200

func (s *Server) handleGetConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversations, err := s.Ledger.ListForUser(c.Request.Context(), currentUser(c).ID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "conversations retrieved successfully", http.StatusOK, conversations, nil)
	}
}

// handleGetMessages returns a conversation's history. Non-participants get
// the same 404 as a missing conversation.
func (s *Server) handleGetMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID, ok := paramID(c, "conversationId")
		if !ok {
			return
		}
		afterID, err := queryInt64(c, "after_id")
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		limit, err := queryInt64(c, "limit")
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		if limit > maxHistoryPage {
			limit = maxHistoryPage
		}

		conversation, err := s.Ledger.Get(c.Request.Context(), conversationID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		if !conversation.Involves(currentUser(c).ID) {
			response.JSON(c, "", http.StatusNotFound, nil, errs.ErrNotFound)
			return
		}

		messages, err := s.MessageLog.ListForConversation(c.Request.Context(), conversation.ID, uint(afterID), int(limit))
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "messages retrieved successfully", http.StatusOK, messages, nil)
	}
}

func (s *Server) handleMarkRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.MarkReadRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		updated, err := s.MessageLog.MarkRead(c.Request.Context(), request.SenderID, currentUser(c).ID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "messages marked as read", http.StatusOK, gin.H{"updated": updated}, nil)
	}
}
