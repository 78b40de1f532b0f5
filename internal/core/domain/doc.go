// Package domain contains the core business entities and pure logic for
// calendar synchronisation: sync configurations, normalised events, the
// synced-event ledger, filters and run results.
//
// Domain types have no dependencies on storage, transport or provider SDKs.
package domain
