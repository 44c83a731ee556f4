package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/techagentng/sakany/config"
	"github.com/techagentng/sakany/db"
	"github.com/techagentng/sakany/services"
	"github.com/techagentng/sakany/services/chat"
)

// Server holds the dependencies of the HTTP and websocket handlers.
type Server struct {
	Config           *config.Config
	AuthRepository   db.AuthRepository
	AuthService      services.AuthService
	TwoFactorService services.TwoFactorService
	PropertyService  services.PropertyService
	MessageLog       *chat.MessageLog
	Ledger           *chat.Ledger
	Relay            *chat.Relay
	// UploadDir is served at /uploads when images are stored on local disk.
	UploadDir string
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Config.Port),
		Handler:           s.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server started on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Relay.Registry().CloseAll()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server shutdown complete")
}
