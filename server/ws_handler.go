package server

import (
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	errs "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/server/response"
)

func (s *Server) upgrader() *websocket.Upgrader {
	origins := s.allowedOrigins()
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(origins) == 0 || origin == "" {
				return true
			}
			if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
				return true
			}
			for _, allowed := range origins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// handleWebSocket authenticates the handshake before upgrading. The token is
// read from the access_token query parameter or the Authorization header. An
// explicit userId parameter must name the token's owner.
func (s *Server) handleWebSocket() gin.HandlerFunc {
	upgrader := s.upgrader()
	return func(c *gin.Context) {
		token := c.Query("access_token")
		if token == "" {
			token = getTokenFromHeader(c)
		}
		if token == "" {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrNotAuthenticated)
			return
		}
		user, err := s.authenticate(token)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrNotAuthenticated)
			return
		}
		if raw := c.Query("userId"); raw != "" {
			claimed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || uint(claimed) != user.ID {
				response.JSON(c, "", http.StatusForbidden, nil, errs.ErrForbidden)
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade for user %d: %v", user.ID, err)
			return
		}
		s.Relay.Serve(user.ID, conn)
	}
}
