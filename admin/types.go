package admin

import "time"

// Status is the probed state of an instance or application.
type Status string

// Instance and application statuses.
const (
	// StatusUp means the instance answered its health probe with 2xx.
	StatusUp Status = "UP"
	// StatusDown means the instance answered with a non-2xx status.
	StatusDown Status = "DOWN"
	// StatusOffline means the instance did not answer at all.
	StatusOffline Status = "OFFLINE"
	// StatusUnknown means the instance has not been probed yet.
	StatusUnknown Status = "UNKNOWN"
)

// InstanceView is the probed state of one service instance.
type InstanceView struct {
	ID          string                 `json:"id"`
	App         string                 `json:"app"`
	Address     string                 `json:"address"`
	Port        int                    `json:"port"`
	Status      Status                 `json:"status"`
	Detail      string                 `json:"detail,omitempty"`
	Info        map[string]interface{} `json:"info,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
}

// ApplicationView aggregates the probed state of one application.
type ApplicationView struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Instances []InstanceView `json:"instances"`
}

// aggregate derives an application status from its instances: UP when every
// instance is up, OFFLINE when every instance is unreachable, DOWN otherwise.
func aggregate(instances []InstanceView) Status {
	if len(instances) == 0 {
		return StatusUnknown
	}
	up, offline := 0, 0
	for _, inst := range instances {
		switch inst.Status {
		case StatusUp:
			up++
		case StatusOffline:
			offline++
		}
	}
	switch {
	case up == len(instances):
		return StatusUp
	case offline == len(instances):
		return StatusOffline
	default:
		return StatusDown
	}
}

// StatusEvent records one instance status transition.
type StatusEvent struct {
	App        string    `json:"app"`
	InstanceID string    `json:"instance_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}
