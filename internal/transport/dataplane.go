package transport

import (
	"crypto/tls"
	"net"

	"github.com/paramexchange/core/internal/errs"
)

// tlsConfig builds the fixed data-plane cipher suite the spec requires:
// TLS 1.2, ECDHE-RSA-AES256-GCM-SHA384 over secp256r1.
func tlsConfig(cert tls.Certificate, insecureSkipVerify bool) *tls.Config {
	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		MinVersion:         tls.VersionTLS12,
		MaxVersion:         tls.VersionTLS12,
		CurvePreferences:   []tls.CurveID{tls.CurveP256},
		CipherSuites:       []uint16{tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384},
		InsecureSkipVerify: insecureSkipVerify,
	}
}

// DialDataPlane connects to addr, optionally wrapping the connection in the
// spec's fixed TLS configuration when tlsEnabled is set.
func DialDataPlane(addr string, tlsEnabled bool, cert tls.Certificate) (net.Conn, error) {
	if !tlsEnabled {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, errs.NetworkError("transport.DialDataPlane", err)
		}
		return conn, nil
	}
	conn, err := tls.Dial("tcp", addr, tlsConfig(cert, true))
	if err != nil {
		return nil, errs.NetworkError("transport.DialDataPlane: tls", err)
	}
	return conn, nil
}

// ListenDataPlane listens on addr, optionally wrapping accepted connections
// in the spec's fixed TLS configuration.
func ListenDataPlane(addr string, tlsEnabled bool, cert tls.Certificate) (net.Listener, error) {
	if !tlsEnabled {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, errs.NetworkError("transport.ListenDataPlane", err)
		}
		return l, nil
	}
	l, err := tls.Listen("tcp", addr, tlsConfig(cert, false))
	if err != nil {
		return nil, errs.NetworkError("transport.ListenDataPlane: tls", err)
	}
	return l, nil
}

// CheckTLSMatch verifies both peers agree on whether the data-plane
// connection should be TLS-wrapped, surfacing a ProtocolError otherwise (the
// original client raised a RuntimeError on exactly this mismatch).
func CheckTLSMatch(localEnabled, peerEnabled bool) error {
	if localEnabled != peerEnabled {
		return errs.ProtocolError("transport.CheckTLSMatch", errTLSMismatch)
	}
	return nil
}
