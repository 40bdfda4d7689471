package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server represents the API server
type Server struct {
	echo *echo.Echo
	host string
	port int
}

// NewServer creates a new API server around the assistant's services.
func NewServer(host string, port int, svc Services) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo: e,
		host: host,
		port: port,
	}

	server.setupRoutes(svc)

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes(svc Services) {
	h := &handlers{svc: svc}

	s.echo.GET("/", h.root)
	s.echo.GET("/health", h.health)
	s.echo.POST("/qna", h.qna)
	s.echo.POST("/review", h.review)
	s.echo.POST("/reset", h.reset)
}

// Start begins the API server and blocks until an interrupt, then shuts
// down gracefully.
func (s *Server) Start() error {
	go func() {
		addr := fmt.Sprintf("%s:%d", s.host, s.port)
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
