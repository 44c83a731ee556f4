package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/sakany/models"
	"github.com/techagentng/sakany/server/response"
)

func (s *Server) handlePendingProperties() gin.HandlerFunc {
	return func(c *gin.Context) {
		properties, err := s.PropertyService.ListPending()
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "pending properties retrieved successfully", http.StatusOK, properties, nil)
	}
}

func (s *Server) handleApproveProperty() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		property, err := s.PropertyService.Approve(id)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "property approved", http.StatusOK, property, nil)
	}
}

func (s *Server) handleRejectProperty() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var request models.RejectPropertyRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		property, err := s.PropertyService.Reject(id, request.Note)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "property rejected", http.StatusOK, property, nil)
	}
}

func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.AuthService.GetAllUsers()
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "users retrieved successfully", http.StatusOK, users, nil)
	}
}

func (s *Server) handleAdminUpdateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var request models.AdminUpdateUserRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		user, err := s.AuthService.AdminUpdateUser(id, &request)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "user updated successfully", http.StatusOK, user, nil)
	}
}

func (s *Server) handleAdminDeleteUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.AuthService.AdminDeleteUser(c.Request.Context(), id); err != nil {
			response.HandleErrors(c, err)
			return
		}
		s.Relay.Registry().Unregister(id)
		response.JSON(c, "user deleted successfully", http.StatusOK, nil, nil)
	}
}
