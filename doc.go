// Package dbcache provides a lazy, process-wide cached database connection
// for Vango applications using pgx v5.
//
// A Cache owns one connection handle for the life of the process. The handle
// is established on first Acquire; every later Acquire returns the cached
// handle without I/O. Concurrent first callers share a single connect
// attempt instead of racing to create duplicates.
//
// Invariants:
//
//   - I1: at most one connect attempt is in flight per cache slot.
//   - I2: every caller waiting on an attempt observes that attempt's outcome.
//   - I3: failed attempts are never cached; the next Acquire starts fresh.
//   - I4: connect-path errors are safe to log by default.
//   - I5: configuration errors are fatal and never trigger a connect.
//
// This package is framework-adjacent but framework-independent. It does not
// import github.com/vango-go/vango.
package dbcache
