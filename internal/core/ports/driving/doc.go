// Package driving defines the inbound ports of the sync core, implemented
// by core services and consumed by the CLI and the scheduler.
package driving
