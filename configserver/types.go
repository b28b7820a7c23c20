package configserver

// DefaultProfile is the profile used when a request does not name one.
const DefaultProfile = "default"

// PropertySource is one resolved configuration document with its properties
// flattened to dotted keys.
type PropertySource struct {
	// Name identifies the backing document (e.g. "billing-prod.yml").
	Name string `json:"name"`
	// Properties maps dotted keys to values.
	Properties map[string]interface{} `json:"properties"`
}

// Environment is the resolved configuration for an (application, profile)
// pair. PropertySources are ordered most specific first; Properties is the
// merged view of all sources under that precedence.
type Environment struct {
	Name            string                 `json:"name"`
	Profiles        []string               `json:"profiles"`
	PropertySources []PropertySource       `json:"property_sources"`
	Properties      map[string]interface{} `json:"properties"`
}

// mergeSources flattens property sources into a single map. Sources are
// ordered most specific first, so earlier sources win.
func mergeSources(sources []PropertySource) map[string]interface{} {
	merged := make(map[string]interface{})
	for i := len(sources) - 1; i >= 0; i-- {
		for k, v := range sources[i].Properties {
			merged[k] = v
		}
	}
	return merged
}
