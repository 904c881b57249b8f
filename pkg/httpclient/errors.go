package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"syscall"
)

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrTimeout indicates the connect or read deadline expired.
	ErrTimeout = errors.New("httpclient: request timed out")

	// ErrDNS indicates a DNS resolution failure for the target host.
	ErrDNS = errors.New("httpclient: DNS resolution failed")

	// ErrTLS indicates a TLS handshake or certificate verification failure.
	ErrTLS = errors.New("httpclient: TLS handshake failed")

	// ErrConnRefused indicates the target actively refused the connection.
	ErrConnRefused = errors.New("httpclient: connection refused")

	// ErrProxy indicates an unusable proxy URL.
	ErrProxy = errors.New("httpclient: invalid proxy")

	// ErrTransport covers every other transport failure.
	ErrTransport = errors.New("httpclient: transport failure")
)

// Classify maps a transport error onto one of the sentinel errors above.
// It returns nil for a nil error.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrDNS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrConnRefused
	}

	var recordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return ErrTLS
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	return ErrTransport
}
