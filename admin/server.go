package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkoca/meshkit/errors"
	"github.com/dkoca/meshkit/logger"
)

// ServerConfig configures the dashboard API.
type ServerConfig struct {
	// Username enables basic auth when set together with PasswordHash.
	Username string `yaml:"username" mapstructure:"username"`
	// PasswordHash is the bcrypt hash of the basic-auth password.
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
}

// Server exposes the aggregated dashboard state over REST.
type Server struct {
	cfg    ServerConfig
	poller *Poller
	log    *logger.Logger
}

// NewServer creates a dashboard API server around the given poller.
func NewServer(cfg ServerConfig, poller *Poller, log *logger.Logger) *Server {
	return &Server{
		cfg:    cfg,
		poller: poller,
		log:    log.WithComponent("admin-api"),
	}
}

// RegisterRoutes mounts the dashboard API under /admin.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/admin")
	if s.cfg.Username != "" && s.cfg.PasswordHash != "" {
		group.Use(s.basicAuth())
	}
	group.GET("/applications", s.handleApplications)
	group.GET("/applications/:name", s.handleApplication)
	group.GET("/events", s.handleEvents)
}

func (s *Server) handleApplications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"applications": s.poller.Applications()})
}

func (s *Server) handleApplication(c *gin.Context) {
	name := c.Param("name")
	view, ok := s.poller.Application(name)
	if !ok {
		appErr := errors.NotFound("application", name)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": s.poller.Events()})
}

func (s *Server) basicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok || user != s.cfg.Username ||
			bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(pass)) != nil {
			c.Header("WWW-Authenticate", `Basic realm="admin"`)
			appErr := errors.Unauthorized("")
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}
