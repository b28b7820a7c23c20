package configserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkoca/meshkit/errors"
	"github.com/dkoca/meshkit/logger"
)

// Server exposes a Repository over REST.
type Server struct {
	repo Repository
	log  *logger.Logger
}

// NewServer creates a config API server around the given repository.
func NewServer(repo Repository, log *logger.Logger) *Server {
	return &Server{
		repo: repo,
		log:  log.WithComponent("config-api"),
	}
}

// RegisterRoutes mounts the config protocol under /config.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/config/:app/:profile", s.handleResolve)
	engine.GET("/config/:app", s.handleResolveDefault)
}

func (s *Server) handleResolve(c *gin.Context) {
	s.resolve(c, c.Param("app"), c.Param("profile"))
}

func (s *Server) handleResolveDefault(c *gin.Context) {
	s.resolve(c, c.Param("app"), DefaultProfile)
}

func (s *Server) resolve(c *gin.Context, app, profile string) {
	env, err := s.repo.Resolve(app, profile)
	if err != nil {
		appErr := errors.Internal("resolving configuration").WithCause(err)
		s.log.Error("config resolution failed", logger.ErrorFields("resolve", err))
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}

	s.log.Debug("configuration resolved", logger.Fields(
		logger.FieldApp, app,
		"profile", profile,
		"sources", len(env.PropertySources),
	))
	c.JSON(http.StatusOK, env)
}
