// Package routeleaseservice contains the route lease and reassignment service of
// the route-operations context.
//
// An agent claims exclusive ownership of a named route for one tenant-local
// calendar day. Ownership is kept alive with heartbeats, can be taken over once
// the holder goes stale, and every ownership change moves the route's unresolved
// deliveries to the new holder.
//
// The module keeps domain/application logic decoupled from runtime/platform
// concerns through ports and adapter composition.
package routeleaseservice
