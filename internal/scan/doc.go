// Package scan orchestrates one reconnaissance run: it validates the target,
// selects a platform probe, runs the info, technology, vulnerability and port
// checks concurrently and merges them into a Result.
//
// Runner fans Orchestrator.Run out over many targets with the same
// concurrency and rate limiting the CLI exposes.
package scan
