package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()

	// LoggerWithFormatter middleware will write the logs to gin.DefaultWriter
	// By default gin.DefaultWriter = os.Stdout
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())
	r.Use(cors.New(s.corsConfig()))
	r.MaxMultipartMemory = 32 << 20
	s.defineRoutes(r)

	return r
}

func (s *Server) corsConfig() cors.Config {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := s.allowedOrigins()
	if len(origins) == 0 {
		conf.AllowAllOrigins = true
		conf.AllowCredentials = false
	} else {
		conf.AllowOrigins = origins
	}
	return conf
}

func (s *Server) allowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(s.Config.AccessControlAllowOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (s *Server) defineRoutes(router *gin.Engine) {
	passwordLimit := limitRate(newRateLimitStore(15*time.Minute, 5))
	codeLimit := limitRate(newRateLimitStore(time.Minute, 3))

	router.GET("/ws", s.handleWebSocket())
	if s.UploadDir != "" {
		router.Static("/uploads", s.UploadDir)
	}

	apirouter := router.Group("/api")
	apirouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	apirouter.POST("/register", s.handleSignup())
	apirouter.POST("/login", s.handleLogin())
	apirouter.POST("/login/2fa", s.handleTwoFactorLogin())
	apirouter.POST("/forgot-password", passwordLimit, s.HandleForgotPassword())
	apirouter.POST("/reset-password", s.ResetPassword())

	apirouter.GET("/properties", s.handleListProperties())
	apirouter.GET("/properties/featured", s.handleFeaturedProperties())
	apirouter.GET("/properties/:id", s.OptionalAuth(), s.handleGetProperty())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.POST("/logout", s.handleLogout())
	authorized.GET("/user", s.handleShowProfile())
	authorized.PATCH("/user/profile", s.handleEditProfile())
	authorized.DELETE("/user/profile", s.handleDeleteAccount())
	authorized.POST("/user/2fa", s.handleToggleTwoFactor())
	authorized.POST("/auth/send-2fa-code", codeLimit, s.handleSendTwoFactorCode())
	authorized.POST("/auth/verify-2fa-code", s.handleVerifyTwoFactorCode())
	authorized.POST("/auth/verify-sms-2fa", s.handleVerifySMS())
	authorized.POST("/notifications/device-token", s.handleDeviceToken())

	authorized.GET("/properties/mine", s.handleMyProperties())
	authorized.POST("/properties", s.handleCreateProperty())
	authorized.PUT("/properties/:id", s.handleUpdateProperty())
	authorized.PATCH("/properties/:id/status", s.handleUpdatePropertyStatus())
	authorized.DELETE("/properties/:id", s.handleDeleteProperty())
	authorized.POST("/properties/:id/images", s.handleUploadPropertyImages())
	authorized.DELETE("/properties/:id/images/:index", s.handleDeletePropertyImage())

	authorized.GET("/conversations", s.handleGetConversations())
	authorized.GET("/messages/:conversationId", s.handleGetMessages())
	authorized.POST("/messages/read", s.handleMarkRead())

	admin := authorized.Group("/")
	admin.Use(s.RequireAdmin())
	admin.GET("/properties/pending", s.handlePendingProperties())
	admin.POST("/properties/:id/approve", s.handleApproveProperty())
	admin.POST("/properties/:id/reject", s.handleRejectProperty())
	admin.GET("/admin/users", s.handleListUsers())
	admin.PATCH("/admin/users/:id", s.handleAdminUpdateUser())
	admin.DELETE("/admin/users/:id", s.handleAdminDeleteUser())
}
