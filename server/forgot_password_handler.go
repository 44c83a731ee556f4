package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/sakany/models"
	"github.com/techagentng/sakany/server/response"
)

const resetLinkSentMessage = "If that email is registered, a reset link has been sent"

// HandleForgotPassword answers the same way whether or not the email exists.
func (s *Server) HandleForgotPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.ForgotPassword
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		if err := s.AuthService.SendEmailForPasswordReset(c.Request.Context(), &request); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, resetLinkSentMessage, http.StatusOK, nil, nil)
	}
}

func (s *Server) ResetPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.ResetPassword
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		if err := models.ValidatePassword(request.Password); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		if err := s.AuthService.ResetPassword(&request); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Password reset successfully", http.StatusOK, nil, nil)
	}
}
