package app

import (
	"context"

	"github.com/dkoca/meshkit/component"
	"github.com/dkoca/meshkit/server"
)

// serverComponent adapts server.Server to the component lifecycle so the
// HTTP listener starts and stops with everything else.
type serverComponent struct {
	srv *server.Server
}

// ServerComponent wraps an HTTP server as a component.Component.
func ServerComponent(srv *server.Server) component.Component {
	return &serverComponent{srv: srv}
}

func (s *serverComponent) Name() string { return "http-server" }

func (s *serverComponent) Start(ctx context.Context) error { return s.srv.Start(ctx) }

func (s *serverComponent) Stop(ctx context.Context) error { return s.srv.Stop(ctx) }

func (s *serverComponent) Health(ctx context.Context) component.Health {
	return component.Health{
		Name:    s.Name(),
		Status:  component.StatusHealthy,
		Details: map[string]string{"addr": s.srv.Addr()},
	}
}
