package registry

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dkoca/meshkit/errors"
	"github.com/dkoca/meshkit/logger"
	"github.com/dkoca/meshkit/validation"
)

// Server exposes a Store over the registry REST protocol.
type Server struct {
	store *Store
	log   *logger.Logger
}

// NewServer creates a registry API server around the given store.
func NewServer(store *Store, log *logger.Logger) *Server {
	return &Server{
		store: store,
		log:   log.WithComponent("registry-api"),
	}
}

// RegisterRoutes mounts the registry protocol under /registry.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/registry")
	group.POST("/apps/:app", s.handleRegister)
	group.PUT("/apps/:app/:id", s.handleHeartbeat)
	group.DELETE("/apps/:app/:id", s.handleDeregister)
	group.GET("/apps", s.handleSnapshot)
	group.GET("/apps/:app", s.handleApp)
}

func (s *Server) handleRegister(c *gin.Context) {
	app := c.Param("app")

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Validation("request body must be valid JSON").WithCause(err))
		return
	}
	if appErr := validation.ValidateStruct(req); appErr != nil {
		writeError(c, appErr)
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	inst := s.store.Register(Instance{
		ID:       req.ID,
		App:      app,
		Address:  req.Address,
		Port:     req.Port,
		Metadata: req.Metadata,
		LeaseTTL: time.Duration(req.LeaseTTLSeconds) * time.Second,
	})

	s.log.Info("instance registered", logger.Fields(
		logger.FieldApp, app,
		logger.FieldInstance, inst.ID,
		"address", inst.HostPort(),
	))
	c.JSON(http.StatusCreated, inst)
}

func (s *Server) handleHeartbeat(c *gin.Context) {
	app, id := c.Param("app"), c.Param("id")

	if err := s.store.Heartbeat(app, id); err != nil {
		writeError(c, errors.NotFound("instance", id).WithDetail("app", app))
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleDeregister(c *gin.Context) {
	app, id := c.Param("app"), c.Param("id")

	if err := s.store.Deregister(app, id); err != nil {
		writeError(c, errors.NotFound("instance", id).WithDetail("app", app))
		return
	}

	s.log.Info("instance deregistered", logger.Fields(
		logger.FieldApp, app,
		logger.FieldInstance, id,
	))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"applications": s.store.Snapshot()})
}

func (s *Server) handleApp(c *gin.Context) {
	app, err := s.store.App(c.Param("app"))
	if err != nil {
		writeError(c, errors.NotFound("application", c.Param("app")))
		return
	}
	c.JSON(http.StatusOK, app)
}

func writeError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
