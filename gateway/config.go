package gateway

import "fmt"

// RouteConfig declares one gateway route.
type RouteConfig struct {
	// ID names the route in logs and metrics.
	ID string `yaml:"id" mapstructure:"id"`
	// URI is the upstream target: "lb://service-name" for registry-resolved
	// targets or "http://host:port" for fixed ones.
	URI string `yaml:"uri" mapstructure:"uri"`
	// Predicates decide whether a request matches this route, e.g.
	// "Path=/api/billing/**" or "Method=GET,POST". All must match.
	Predicates []string `yaml:"predicates" mapstructure:"predicates"`
	// Filters mutate the request or response, e.g. "StripPrefix=2" or
	// "AddRequestHeader=X-Channel,web". Applied in order.
	Filters []string `yaml:"filters" mapstructure:"filters"`
	// Order sorts routes; lower values are evaluated first.
	Order int `yaml:"order" mapstructure:"order"`
}

// Validate checks that the route declaration is complete.
func (r *RouteConfig) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("route id is required")
	}
	if r.URI == "" {
		return fmt.Errorf("route %s: uri is required", r.ID)
	}
	if len(r.Predicates) == 0 {
		return fmt.Errorf("route %s: at least one predicate is required", r.ID)
	}
	return nil
}

// Config configures the gateway router.
type Config struct {
	// Routes is the ordered route table.
	Routes []RouteConfig `yaml:"routes" mapstructure:"routes"`
}

// Validate checks every route declaration.
func (c *Config) Validate() error {
	if len(c.Routes) == 0 {
		return fmt.Errorf("at least one route is required")
	}
	seen := make(map[string]bool, len(c.Routes))
	for i := range c.Routes {
		if err := c.Routes[i].Validate(); err != nil {
			return err
		}
		if seen[c.Routes[i].ID] {
			return fmt.Errorf("duplicate route id %s", c.Routes[i].ID)
		}
		seen[c.Routes[i].ID] = true
	}
	return nil
}
