// Package rotation runs a single-credential operation across a credential pool.
//
// The Invoker tries credentials strictly in pool order, one at a time. The
// first success wins and earlier failures are only logged. When every
// credential fails the caller receives one AggregatedError carrying the last
// failure. There is no same-key retry, no backoff and no fan-out: each
// attempt spends one credential's quota.
package rotation
