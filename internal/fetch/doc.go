// Package fetch is the leaf HTTP layer of the probe engine.
//
// A Fetcher issues one GET per attempt with a browser User-Agent drawn from a
// fixed pool. Timeouts and connection failures are retried up to MaxRetries
// attempts; anything else fails immediately. Failures are reported as *Error
// with a Kind so callers can treat them as absence rather than aborting a scan.
// Responses are never cached: every call goes to the network.
package fetch
