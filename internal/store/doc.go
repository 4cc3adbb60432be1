// Package store defines the persistence contracts for municipalities, commitments,
// status updates, scraped pages and official obligations. Implementations live in
// internal/storage; this package must not import database drivers or concrete clients.
package store
