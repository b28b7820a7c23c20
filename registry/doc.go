// Package registry implements meshkit's service registry: a lease-based
// in-memory store of service instances behind a small REST protocol, and the
// client every service uses to register itself, heart-beat its lease, and
// discover peers with round-robin selection.
//
// Protocol:
//
//	POST   /registry/apps/:app      register an instance (JSON body)
//	PUT    /registry/apps/:app/:id  renew the instance lease (404 if unknown)
//	DELETE /registry/apps/:app/:id  deregister
//	GET    /registry/apps           full snapshot
//	GET    /registry/apps/:app      one application (404 when empty)
//
// An instance whose lease is not renewed within its TTL is evicted by a
// background sweep. A heartbeat for an evicted or unknown instance returns
// 404 and the client responds by re-registering.
package registry
