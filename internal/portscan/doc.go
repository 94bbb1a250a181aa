// Package portscan probes TCP ports with plain connect attempts. Hosts are
// resolved once per scan and probes run on a bounded worker pool.
package portscan
