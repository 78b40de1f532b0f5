// Package services contains the core application services: the
// reconciliation engine and the scheduler that feeds it due configurations.
package services
