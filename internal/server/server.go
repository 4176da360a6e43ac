// Package server exposes the authentication service over HTTP with gin.
// It maps the service's error taxonomy onto status codes: uniform 401 for
// any credential failure, 429 with a Retry-After header for a blocked
// origin, 500 for internal failures.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/authgate/authgate/internal/authn"
	"github.com/authgate/authgate/pkg/models"
)

// Server is the HTTP boundary around the authentication service.
type Server struct {
	router *gin.Engine
	logger *zap.Logger
	auth   authn.AuthService
}

// New creates the server and registers its routes. mode is a gin mode
// string ("release", "debug", "test").
func New(logger *zap.Logger, auth authn.AuthService, mode string) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}

	s := &Server{
		logger: logger,
		auth:   auth,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))

	s.router = router
	s.registerRoutes()
	return s
}

// Router returns the gin engine, used by tests and by the hosting
// process to build its http.Server.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := s.router.Group("/api/v1/auth")
	{
		auth.POST("/login", s.login)
		auth.POST("/register", s.register)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// login authenticates a credential pair. The rate-limiter key is the
// resolved client address, not the account identifier, so one origin
// probing many accounts burns a single failure budget.
func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// A structurally bad login request surfaces exactly like a
		// failed credential check; the 401 body is uniform.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	user, err := s.auth.Authenticate(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		s.writeLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{User: user})
}

func (s *Server) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := s.auth.Register(c.Request.Context(), &req)
	if err != nil {
		s.writeRegisterError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) writeLoginError(c *gin.Context, err error) {
	var rateLimited *authn.RateLimitedError
	switch {
	case errors.As(err, &rateLimited):
		seconds := rateLimited.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               "too many failed attempts",
			"retry_after_seconds": seconds,
		})
	case errors.Is(err, authn.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		s.logger.Error("authentication failed internally", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) writeRegisterError(c *gin.Context, err error) {
	var rejected *authn.RejectedError
	switch {
	case errors.Is(err, authn.ErrAccountExists):
		c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
	case errors.As(err, &rejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": rejected.Error()})
	default:
		s.logger.Error("registration failed internally", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
