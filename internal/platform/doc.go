// Package platform implements the platform probes. One engine serves every
// platform; what differs between the generic web probe, WordPress and Joomla
// lives in the embedded tables under tables/.
//
// A probe answers four questions about a target URL:
//
//	Verify               does the target run this platform
//	SiteInfo, GetInfo    homepage metadata, version, theme and assets
//	DetectTechnologies   fingerprinted technologies
//	ScanVulnerabilities  signature matches plus computed checks
//
// Every method tolerates network failures: a check that cannot fetch what it
// needs is left out of the result.
package platform
