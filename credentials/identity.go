package credentials

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
)

// PSK is a pre-shared identity label and secret.
type PSK struct {
	Identity []byte
	Secret   []byte
}

// Validate returns an error when the PSK cannot be used in a handshake.
func (p *PSK) Validate() error {
	if p == nil {
		return errors.New("psk is not set")
	}
	if len(p.Identity) == 0 {
		return errors.New("psk identity is empty")
	}
	if len(p.Secret) == 0 {
		return errors.New("psk secret is empty")
	}
	return nil
}

func (p *PSK) clone() *PSK {
	return &PSK{
		Identity: append([]byte(nil), p.Identity...),
		Secret:   append([]byte(nil), p.Secret...),
	}
}

// Certificate is a certificate chain with its private key.
type Certificate struct {
	Chain tls.Certificate
	// SendCertificateRequest makes the session present Chain when the peer
	// requests client authentication. Without it the certificate suites are
	// still offered but the client stays anonymous.
	SendCertificateRequest bool
}

// Validate returns an error when the certificate cannot be used in a handshake.
func (c *Certificate) Validate() error {
	if c == nil {
		return errors.New("certificate is not set")
	}
	if len(c.Chain.Certificate) == 0 {
		return errors.New("certificate chain is empty")
	}
	if c.Chain.PrivateKey == nil {
		return errors.New("private key is not set")
	}
	switch c.Chain.PrivateKey.(type) {
	case *ecdsa.PrivateKey, *rsa.PrivateKey, ed25519.PrivateKey:
	default:
		return fmt.Errorf("unsupported private key type %T", c.Chain.PrivateKey)
	}
	if _, err := x509.ParseCertificate(c.Chain.Certificate[0]); err != nil {
		return fmt.Errorf("cannot parse leaf certificate: %w", err)
	}
	return nil
}

// Leaf returns the parsed first certificate of the chain.
func (c *Certificate) Leaf() (*x509.Certificate, error) {
	if c == nil || len(c.Chain.Certificate) == 0 {
		return nil, errors.New("certificate chain is empty")
	}
	return x509.ParseCertificate(c.Chain.Certificate[0])
}

func (c *Certificate) clone() *Certificate {
	chain := make([][]byte, 0, len(c.Chain.Certificate))
	for _, der := range c.Chain.Certificate {
		chain = append(chain, append([]byte(nil), der...))
	}
	return &Certificate{
		Chain: tls.Certificate{
			Certificate: chain,
			PrivateKey:  c.Chain.PrivateKey,
		},
		SendCertificateRequest: c.SendCertificateRequest,
	}
}

// Identity holds the credentials of the local endpoint. Either part may be nil.
type Identity struct {
	psk         *PSK
	certificate *Certificate
}

// NewIdentity copies the usable parts of psk and cert into an Identity.
// A part that fails validation is left out; when nothing remains the error wraps ErrConfiguration.
func NewIdentity(psk *PSK, cert *Certificate) (Identity, error) {
	var id Identity
	var errs []error
	if psk != nil {
		if err := psk.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("psk: %w", err))
		} else {
			id.psk = psk.clone()
		}
	}
	if cert != nil {
		if err := cert.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("certificate: %w", err))
		} else {
			id.certificate = cert.clone()
		}
	}
	if id.psk == nil && id.certificate == nil {
		if len(errs) == 0 {
			errs = append(errs, errors.New("neither psk nor certificate is set"))
		}
		return Identity{}, fmt.Errorf("%w: no usable credential: %w", coapsErrors.ErrConfiguration, errors.Join(errs...))
	}
	return id, nil
}

// PSK returns a copy of the pre-shared key or nil.
func (i Identity) PSK() *PSK {
	if i.psk == nil {
		return nil
	}
	return i.psk.clone()
}

// Certificate returns a copy of the certificate or nil.
func (i Identity) Certificate() *Certificate {
	if i.certificate == nil {
		return nil
	}
	return i.certificate.clone()
}

// HasPSK reports whether the identity can negotiate PSK mode.
func (i Identity) HasPSK() bool {
	return i.psk != nil
}

// HasCertificate reports whether the identity can negotiate certificate mode.
func (i Identity) HasCertificate() bool {
	return i.certificate != nil
}

// Validate returns ErrConfiguration when the identity is empty.
func (i Identity) Validate() error {
	if !i.HasPSK() && !i.HasCertificate() {
		return fmt.Errorf("%w: identity is empty", coapsErrors.ErrConfiguration)
	}
	return nil
}

// Signer returns the private key of the certificate identity.
func (i Identity) Signer() (crypto.Signer, bool) {
	if i.certificate == nil {
		return nil, false
	}
	s, ok := i.certificate.Chain.PrivateKey.(crypto.Signer)
	return s, ok
}
