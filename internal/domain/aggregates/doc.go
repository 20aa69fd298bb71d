// Package aggregates defines the facility aggregate model: the compiled shape
// registry, presence-preserving payloads, hydrated documents and the repository
// contract implemented in internal/data/aggregates.
//
// An aggregate is one root row plus named singleton slots (zero or one row each)
// and named collection slots (zero or more rows each). Shapes are registered at
// startup and are read-only afterwards.
package aggregates
