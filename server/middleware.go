package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	errs "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
	"github.com/techagentng/sakany/server/response"
	"github.com/techagentng/sakany/services/jwt"
)

// Authorize rejects requests without a valid, non-revoked access token and
// stores the caller under "user".
func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		if accessToken == "" {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		user, err := s.authenticate(accessToken)
		if err != nil {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Set("access_token", accessToken)
		c.Next()
	}
}

// OptionalAuth sets the caller when a valid token is present and never rejects.
func (s *Server) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if accessToken := getTokenFromHeader(c); accessToken != "" {
			if user, err := s.authenticate(accessToken); err == nil {
				c.Set("user", user)
				c.Set("userID", user.ID)
			}
		}
		c.Next()
	}
}

func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.IsAdmin {
			respondAndAbort(c, "admin access required", http.StatusForbidden, nil, errs.ErrForbidden)
			return
		}
		c.Next()
	}
}

// authenticate resolves an access token to its live user.
func (s *Server) authenticate(accessToken string) (*models.User, error) {
	if s.AuthRepository.IsTokenInBlacklist(accessToken) {
		return nil, errors.Wrap(errs.ErrUnauthorized, "token revoked")
	}
	userID, _, err := jwt.ValidateTyped(accessToken, s.Config.JWTSecret, jwt.AccessTokenType)
	if err != nil {
		return nil, err
	}
	user, err := s.AuthRepository.FindUserByID(userID)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			log.Printf("authenticate: %v", err)
		}
		return nil, err
	}
	return user, nil
}

func limitRate(store ratelimit.Store) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errs.ErrorHandler,
		KeyFunc:      keyFunc,
	})
}

func newRateLimitStore(rate time.Duration, limit uint) ratelimit.Store {
	return ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  rate,
		Limit: limit,
	})
}

// keyFunc limits per client and route.
func keyFunc(c *gin.Context) string {
	return c.ClientIP() + " " + c.FullPath()
}

// getTokenFromHeader returns the bearer token in the authorization header
func getTokenFromHeader(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get("user"); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// decode binds the JSON body into v and runs the struct validation rules.
func decode(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return errors.Wrap(errs.ErrBadRequest, "invalid request body")
	}
	return models.ValidateStruct(v)
}

// respondAndAbort calls response.JSON and aborts the Context
func respondAndAbort(c *gin.Context, message string, status int, data interface{}, e *errs.Error) {
	response.JSON(c, message, status, data, e)
	c.Abort()
}
