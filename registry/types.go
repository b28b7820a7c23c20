package registry

import (
	"fmt"
	"time"
)

// InstanceStatus is the registration state of an instance.
type InstanceStatus string

const (
	StatusUp       InstanceStatus = "UP"
	StatusStarting InstanceStatus = "STARTING"
	StatusDown     InstanceStatus = "DOWN"
)

// Instance is a registered service instance.
type Instance struct {
	ID            string            `json:"id"`
	App           string            `json:"app"`
	Address       string            `json:"address"`
	Port          int               `json:"port"`
	Status        InstanceStatus    `json:"status"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	LeaseTTL      time.Duration     `json:"lease_ttl"`
	RegisteredAt  time.Time         `json:"registered_at"`
	LastHeartbeat time.Time         `json:"last_heartbeat"`
}

// HostPort returns the instance's address:port.
func (i Instance) HostPort() string {
	return fmt.Sprintf("%s:%d", i.Address, i.Port)
}

// URL returns the instance's base URL.
func (i Instance) URL() string {
	return "http://" + i.HostPort()
}

// Application groups the registered instances of one service.
type Application struct {
	Name      string     `json:"name"`
	Instances []Instance `json:"instances"`
}

// RegisterRequest is the JSON body of a registration call.
type RegisterRequest struct {
	ID              string            `json:"id"`
	Address         string            `json:"address" validate:"required"`
	Port            int               `json:"port" validate:"min=1,max=65535"`
	Metadata        map[string]string `json:"metadata"`
	LeaseTTLSeconds int               `json:"lease_ttl_seconds" validate:"min=0,max=3600"`
}
