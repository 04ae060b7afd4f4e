// Package tlsconfig builds a *tls.Config for the "tls://" listener
// scheme (spec.md §6's app_attach "for crypto schemes a cert/key pair
// handle is attached"). Adapted from the teacher's tls.Config builder,
// trimmed to the certificate-loading and hardening pieces this module
// needs: no ACME/Let's Encrypt automation, no HTTP/2-or-3 ALPN
// negotiation, since those protocol layers are outside this server's
// scope (spec.md §1).
package tlsconfig

import (
	"crypto/tls"
	"fmt"
)

// FromCertFiles loads a PEM certificate/key pair and returns a
// *tls.Config hardened with SecureDefaults, ready to pass to
// engine.Server.Start. Mirrors the teacher's ManualTLS.
func FromCertFiles(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("tlsconfig: certificate and key files are required")
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("tlsconfig: failed to load certificate: %w", err)
	}

	cfg := SecureDefaults()
	cfg.Certificates = []tls.Certificate{cert}
	return cfg, nil
}

// SecureDefaults returns a *tls.Config requiring TLS 1.2+, restricted
// to cipher suites with perfect forward secrecy — the teacher's
// SecureDefaults, minus the HTTP/2/3 ALPN protocol list this server
// never negotiates.
func SecureDefaults() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
		PreferServerCipherSuites: true,
		Renegotiation:            tls.RenegotiateNever,
		NextProtos:               []string{"http/1.1"},
	}
}
