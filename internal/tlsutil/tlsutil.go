// Package tlsutil provides the hardened http.Transport shared by every
// outbound HTTP client in the gateway: TLS 1.2+ minimum, AEAD-only cipher
// suites, and connection-pool knobs sized for long-lived streaming calls to
// LLM providers rather than short request/response API calls.
package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultTLSConfig returns a hardened TLS configuration: TLS 1.2 minimum,
// AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// TransportOptions configures the pool/proxy/dial knobs of a SecureTransport.
// Zero values fall back to sane defaults for a streaming upstream client.
type TransportOptions struct {
	// MaxConnsPerHost bounds total connections per host. Zero means 100.
	MaxConnsPerHost int
	// MaxIdleConnsPerHost bounds idle connections kept per host. Zero means 100.
	MaxIdleConnsPerHost int
	// ConnectTimeout bounds TCP+TLS dial time. Zero means 10s.
	ConnectTimeout time.Duration
	// Proxy, if non-nil, routes all requests through the given URL.
	Proxy *url.URL
}

// SecureTransport returns an *http.Transport with TLS hardening and the
// given pool/proxy options applied.
func SecureTransport(opts TransportOptions) *http.Transport {
	maxConns := opts.MaxConnsPerHost
	if maxConns == 0 {
		maxConns = 100
	}
	maxIdle := opts.MaxIdleConnsPerHost
	if maxIdle == 0 {
		maxIdle = 100
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = 10 * time.Second
	}

	t := &http.Transport{
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxConnsPerHost:       maxConns,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Proxy != nil {
		proxyURL := opts.Proxy
		t.Proxy = func(*http.Request) (*url.URL, error) { return proxyURL, nil }
	}
	return t
}

// SecureHTTPClient is a drop-in replacement for &http.Client{Timeout: timeout}
// that uses a hardened transport.
func SecureHTTPClient(timeout time.Duration, opts TransportOptions) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: SecureTransport(opts),
	}
}
