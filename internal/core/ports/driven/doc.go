// Package driven defines the outbound ports of the sync core: the upstream
// calendar source, the polymorphic destination, and the persistence stores.
// Adapters implement these interfaces; the core never imports adapters.
package driven
