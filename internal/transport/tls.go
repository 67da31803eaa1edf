package transport

import (
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/cryptobyte"
)

// TLSConfig is the manual-certificate subset of the teacher's TLS
// configuration (spec §4.5 TLS variant). The teacher's config.go/cert.go
// additionally automate Let's Encrypt/ACME issuance and renewal, which
// is X.509/crypto-primitive automation explicitly out of scope (spec
// §1); only loading an operator-supplied certificate/key pair survives
// here, fed by the TlsMemoryCertificate/TlsMemoryKey configuration
// options (spec §6).
type TLSConfig struct {
	CertPEM, KeyPEM []byte // in-memory PEM, takes precedence over the file paths
	CertFile        string
	KeyFile         string

	MinVersion   uint16 // defaults to tls.VersionTLS12
	MaxVersion   uint16
	CipherSuites []uint16
	ClientAuth   tls.ClientAuthType
	ClientCAs    *x509.CertPool
	NextProtos   []string
}

// ErrNoCertificate is returned by Build when neither PEM bytes nor file
// paths were supplied.
var ErrNoCertificate = errors.New("transport: no TLS certificate configured")

// Build resolves TLSConfig into a *tls.Config ready for tls.NewListener.
func (c TLSConfig) Build() (*tls.Config, error) {
	var cert tls.Certificate
	var err error
	switch {
	case len(c.CertPEM) > 0 && len(c.KeyPEM) > 0:
		cert, err = tls.X509KeyPair(c.CertPEM, c.KeyPEM)
	case c.CertFile != "" && c.KeyFile != "":
		if _, statErr := os.Stat(c.CertFile); statErr != nil {
			return nil, fmt.Errorf("transport: cert file: %w", statErr)
		}
		cert, err = tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	default:
		return nil, ErrNoCertificate
	}
	if err != nil {
		return nil, fmt.Errorf("transport: loading certificate: %w", err)
	}

	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
		MaxVersion:   c.MaxVersion,
		CipherSuites: c.CipherSuites,
		ClientAuth:   c.ClientAuth,
		ClientCAs:    c.ClientCAs,
		NextProtos:   c.NextProtos,
	}, nil
}

// ListenTLS opens a tuned, TLS-wrapped listener on addr.
func ListenTLS(addr string, tcpCfg Config, tlsCfg TLSConfig) (net.Listener, error) {
	inner, err := Listen(addr, tcpCfg)
	if err != nil {
		return nil, err
	}
	built, err := tlsCfg.Build()
	if err != nil {
		inner.Close()
		return nil, err
	}
	return tls.NewListener(inner, built), nil
}

// RecordType is a TLS record's content-type byte (spec §4.5
// "TlsHandshake super-state that peeks the first record byte").
type RecordType byte

const (
	RecordChangeCipherSpec RecordType = 20
	RecordAlert            RecordType = 21
	RecordHandshake        RecordType = 22
	RecordApplicationData  RecordType = 23
	RecordUnknown          RecordType = 0
)

func (t RecordType) String() string {
	switch t {
	case RecordChangeCipherSpec:
		return "ChangeCipherSpec"
	case RecordAlert:
		return "Alert"
	case RecordHandshake:
		return "Handshake"
	case RecordApplicationData:
		return "ApplicationData"
	default:
		return "Unknown"
	}
}

// PeekRecordType looks at the next TLS record header without consuming
// it, classifying whether the connection is mid-handshake, sending
// application data, or erroring out with an alert — the distinction
// the TlsHandshake super-state needs (spec §4.5). The 5-byte TLS record
// header (type, version, length) is parsed with cryptobyte rather than
// indexing the peeked bytes by hand.
func PeekRecordType(br *bufio.Reader) (RecordType, error) {
	header, err := br.Peek(5)
	if err != nil {
		return RecordUnknown, err
	}
	s := cryptobyte.String(header)
	var typ uint8
	if !s.ReadUint8(&typ) {
		return RecordUnknown, errors.New("transport: short TLS record header")
	}
	var version uint16
	if !s.ReadUint16(&version) {
		return RecordUnknown, errors.New("transport: short TLS record header")
	}
	var length uint16
	if !s.ReadUint16(&length) {
		return RecordUnknown, errors.New("transport: short TLS record header")
	}
	switch RecordType(typ) {
	case RecordChangeCipherSpec, RecordAlert, RecordHandshake, RecordApplicationData:
		return RecordType(typ), nil
	default:
		return RecordUnknown, nil
	}
}

// IsFatalAlert reports whether conn's error is a TLS alert severe
// enough that the connection must close with Closed{WithFatalAlert}
// rather than the ordinary Closed{Ok} close_notify path.
func IsFatalAlert(err error) bool {
	var re *tls.RecordHeaderError
	if errors.As(err, &re) {
		return true
	}
	var ae tls.AlertError
	return errors.As(err, &ae) && ae != tls.AlertError(0) /* close_notify is handled as io.EOF, not AlertError */
}
