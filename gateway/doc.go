// Package gateway implements a routing reverse proxy for service meshes.
//
// Routes are declared as configuration: each route has an upstream URI,
// a set of predicates deciding whether a request matches, and a filter
// chain mutating the request and response on the way through. Routes are
// evaluated in order and the first match wins.
//
// Upstream URIs of the form "lb://service-name" are resolved through a
// service registry with round-robin balancing; plain "http://" URIs proxy
// to a fixed address.
package gateway
