// Package signature holds the detection rule model and the matcher that
// applies technology and vulnerability tables to a fetched page.
package signature
