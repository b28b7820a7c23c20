// Package admin implements a monitoring dashboard backend for registered
// services.
//
// A Poller discovers instances through the service registry and probes each
// one's operational endpoints. Probe results are aggregated per application
// and every status transition is recorded in a bounded journal. The Server
// exposes the aggregated view and the journal over REST.
package admin
