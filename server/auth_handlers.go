package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/sakany/models"
	"github.com/techagentng/sakany/server/response"
)

func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.RegisterRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		if err := models.ValidatePassword(request.Password); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		result, err := s.AuthService.SignupUser(&request)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Signup successful", http.StatusCreated, result, nil)
	}
}

func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.LoginRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		result, challenge, err := s.AuthService.LoginUser(c.Request.Context(), &request)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		if challenge != nil {
			response.JSON(c, "two factor authentication required", http.StatusOK, challenge, nil)
			return
		}
		response.JSON(c, "login successful", http.StatusOK, result, nil)
	}
}

func (s *Server) handleTwoFactorLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.TwoFactorLoginRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		result, err := s.AuthService.CompleteTwoFactorLogin(c.Request.Context(), &request)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "login successful", http.StatusOK, result, nil)
	}
}

func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.AuthService.Logout(c.GetString("access_token")); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "logout successful", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleShowProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.JSON(c, "user details retrieved successfully", http.StatusOK, currentUser(c), nil)
	}
}

func (s *Server) handleEditProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.UpdateProfileRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		if request.Password != nil {
			if err := models.ValidatePassword(*request.Password); err != nil {
				response.JSON(c, "", http.StatusBadRequest, nil, err)
				return
			}
		}

		user, err := s.AuthService.EditUserProfile(currentUser(c).ID, &request)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "profile updated successfully", http.StatusOK, user, nil)
	}
}

func (s *Server) handleDeleteAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if err := s.AuthService.DeleteAccount(user.ID, c.GetString("access_token")); err != nil {
			response.HandleErrors(c, err)
			return
		}
		s.Relay.Registry().Unregister(user.ID)
		response.JSON(c, "account deleted", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleDeviceToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.DeviceTokenRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		if err := s.AuthService.SetDeviceToken(currentUser(c).ID, request.Token); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "device token saved", http.StatusOK, nil, nil)
	}
}
