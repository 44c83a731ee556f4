package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/sakany/models"
	"github.com/techagentng/sakany/server/response"
)

func (s *Server) handleToggleTwoFactor() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.ToggleTwoFactorRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		user, err := s.TwoFactorService.Toggle(currentUser(c).ID, request.Enabled)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "two factor settings updated", http.StatusOK, user, nil)
	}
}

func (s *Server) handleSendTwoFactorCode() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.TwoFactorService.SendCode(c.Request.Context(), currentUser(c).ID); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "verification code sent", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleVerifyTwoFactorCode() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.VerifyCodeRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		user, err := s.TwoFactorService.VerifyCode(c.Request.Context(), currentUser(c).ID, request.Code)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "two factor authentication enabled", http.StatusOK, user, nil)
	}
}

func (s *Server) handleVerifySMS() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.VerifySMSRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		user, err := s.TwoFactorService.VerifySMS(c.Request.Context(), currentUser(c).ID, request.IDToken)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "phone verified", http.StatusOK, user, nil)
	}
}
