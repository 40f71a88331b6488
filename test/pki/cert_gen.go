// Package pki generates certificate authorities and leaf certificates for tests.
package pki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"
)

var algo = elliptic.P256()

type config struct {
	notBefore  time.Time
	notAfter   time.Time
	commonName string
}

func newConfig(commonName string, opts ...Option) config {
	now := time.Now()
	cfg := config{
		notBefore:  now.Add(-time.Minute),
		notAfter:   now.Add(time.Hour),
		commonName: commonName,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Option customizes a generated certificate.
type Option func(*config)

// WithValidity sets the validity window.
func WithValidity(notBefore, notAfter time.Time) Option {
	return func(c *config) {
		c.notBefore = notBefore
		c.notAfter = notAfter
	}
}

// WithExpired makes the certificate expire an hour before now.
func WithExpired() Option {
	now := time.Now()
	return WithValidity(now.Add(-2*time.Hour), now.Add(-time.Hour))
}

// WithCommonName overrides the subject common name.
func WithCommonName(cn string) Option {
	return func(c *config) {
		c.commonName = cn
	}
}

func subject(cn string) pkix.Name {
	return pkix.Name{
		Country:      []string{"CZ"},
		Organization: []string{"Test"},
		CommonName:   cn,
	}
}

func serialNumber() (*big.Int, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(rand.Reader, serialNumberLimit)
}

func encode(derBytes []byte, priv *ecdsa.PrivateKey) (cert, key []byte, err error) {
	cert = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, err
	}
	key = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})
	return cert, key, nil
}

// GenerateCA creates a self-signed certificate authority.
func GenerateCA(opts ...Option) (ca *x509.Certificate, cert, key []byte, priv *ecdsa.PrivateKey, err error) {
	cfg := newConfig("Test CA", opts...)
	priv, err = ecdsa.GenerateKey(algo, rand.Reader)
	if err != nil {
		return
	}
	sn, err := serialNumber()
	if err != nil {
		return
	}

	template := &x509.Certificate{
		NotBefore:    cfg.notBefore,
		NotAfter:     cfg.notAfter,
		SerialNumber: sn,
		Subject:      subject(cfg.commonName),

		IsCA:                  true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return
	}
	ca, err = x509.ParseCertificate(derBytes)
	if err != nil {
		return
	}
	cert, key, err = encode(derBytes, priv)
	return
}

// GenerateCertificate creates a leaf certificate signed by ca, valid for loopback addresses.
func GenerateCertificate(ca *x509.Certificate, caPriv *ecdsa.PrivateKey, commonName string, opts ...Option) (cert, key []byte, err error) {
	cfg := newConfig(commonName, opts...)
	priv, err := ecdsa.GenerateKey(algo, rand.Reader)
	if err != nil {
		return
	}
	sn, err := serialNumber()
	if err != nil {
		return
	}

	template := x509.Certificate{
		NotBefore:    cfg.notBefore,
		NotAfter:     cfg.notAfter,
		SerialNumber: sn,
		Subject:      subject(cfg.commonName),

		DNSNames:    []string{cfg.commonName, "localhost"},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},

		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:    x509.KeyUsageDigitalSignature,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, ca, &priv.PublicKey, caPriv)
	if err != nil {
		return
	}
	return encode(derBytes, priv)
}

// Bundle is a CA with one issued leaf, ready for use in tls style configs.
type Bundle struct {
	CA      *x509.Certificate
	CAPEM   []byte
	Leaf    tls.Certificate
	CertPEM []byte
	KeyPEM  []byte
}

// NewBundle generates a CA and a leaf certificate named commonName. opts apply to the leaf only.
func NewBundle(commonName string, opts ...Option) (*Bundle, error) {
	ca, caPEM, _, caPriv, err := GenerateCA()
	if err != nil {
		return nil, fmt.Errorf("cannot generate ca: %w", err)
	}
	certPEM, keyPEM, err := GenerateCertificate(ca, caPriv, commonName, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot generate certificate: %w", err)
	}
	leaf, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("cannot load certificate: %w", err)
	}
	return &Bundle{
		CA:      ca,
		CAPEM:   caPEM,
		Leaf:    leaf,
		CertPEM: certPEM,
		KeyPEM:  keyPEM,
	}, nil
}
