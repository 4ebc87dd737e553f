// Package aggregates implements the loyalty aggregate contracts on top of the
// table repos in internal/data/repos. Every write runs inside one transaction
// owned by the aggregate.
package aggregates
