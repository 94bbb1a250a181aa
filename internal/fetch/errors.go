package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ErrorKind classifies a failed fetch.
type ErrorKind int

const (
	// KindOther is any failure that is not worth retrying.
	KindOther ErrorKind = iota
	// KindTimeout is a connect or read deadline hit.
	KindTimeout
	// KindConnection is a refused, reset, or otherwise broken connection.
	KindConnection
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection_error"
	default:
		return "other"
	}
}

// Error is returned by Fetcher.Fetch when no response could be obtained.
type Error struct {
	Kind     ErrorKind
	URL      string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s after %d attempt(s): %v", e.URL, e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the kind is retried by the fetcher.
func (k ErrorKind) Retryable() bool {
	return k == KindTimeout || k == KindConnection
}

// IsTimeout reports whether err is a fetch timeout.
func IsTimeout(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindTimeout
}

// classify maps a transport error onto an ErrorKind.
func classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, context.Canceled) {
		return KindOther
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnection
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindConnection
	}

	// TLS handshake failures surface as connection errors.
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return KindConnection
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return KindConnection
	}
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return KindConnection
	}
	var hostErr x509.HostnameError
	if errors.As(err, &hostErr) {
		return KindConnection
	}

	return KindOther
}
