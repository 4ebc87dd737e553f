// Package aggregates declares the loyalty write boundaries.
//
// Each aggregate owns one atomic unit of change: a customer's balance with its
// ledger row, a QR claim with its usage row, an A/B assignment. Implementations
// live in internal/data/aggregates.
package aggregates
