// Package constants centralizes defaults shared across the CLI and the probe engine.
//
// Timeouts, retry budgets, body caps, and worker bounds live here so cmd/ and
// internal/ agree on them without import cycles.
package constants
