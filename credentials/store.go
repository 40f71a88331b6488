package credentials

import (
	"fmt"
	"os"

	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
)

// Store supplies the local identity and the trust anchors of a session.
type Store interface {
	Identity() (Identity, error)
	TrustAnchors() (TrustAnchorSet, error)
}

// StaticStore serves credentials held in memory.
type StaticStore struct {
	identity Identity
	anchors  TrustAnchorSet
}

// NewStaticStore creates a store returning identity and anchors.
func NewStaticStore(identity Identity, anchors TrustAnchorSet) *StaticStore {
	return &StaticStore{
		identity: identity,
		anchors:  anchors,
	}
}

func (s *StaticStore) Identity() (Identity, error) {
	if err := s.identity.Validate(); err != nil {
		return Identity{}, err
	}
	return s.identity, nil
}

func (s *StaticStore) TrustAnchors() (TrustAnchorSet, error) {
	return s.anchors, nil
}

// FileStore loads PEM encoded credentials from disk on every call.
type FileStore struct {
	PSKIdentity string
	PSKSecret   string

	CertFile               string
	KeyFile                string
	SendCertificateRequest bool

	// CAFile holds the trust anchors; several PEM blocks are allowed.
	CAFile string
}

func (s *FileStore) Identity() (Identity, error) {
	var psk *PSK
	if s.PSKIdentity != "" || s.PSKSecret != "" {
		psk = &PSK{Identity: []byte(s.PSKIdentity), Secret: []byte(s.PSKSecret)}
	}
	var cert *Certificate
	if s.CertFile != "" || s.KeyFile != "" {
		c, err := s.loadCertificate()
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %w", coapsErrors.ErrConfiguration, err)
		}
		cert = c
	}
	return NewIdentity(psk, cert)
}

func (s *FileStore) loadCertificate() (*Certificate, error) {
	certBytes, err := os.ReadFile(s.CertFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read certificate %v: %w", s.CertFile, err)
	}
	keyBytes, err := os.ReadFile(s.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read private key %v: %w", s.KeyFile, err)
	}
	chain, err := LoadKeyAndCertificate(keyBytes, certBytes)
	if err != nil {
		return nil, fmt.Errorf("cannot load certificate %v: %w", s.CertFile, err)
	}
	return &Certificate{
		Chain:                  *chain,
		SendCertificateRequest: s.SendCertificateRequest,
	}, nil
}

func (s *FileStore) TrustAnchors() (TrustAnchorSet, error) {
	if s.CAFile == "" {
		return TrustAnchorSet{}, nil
	}
	caBytes, err := os.ReadFile(s.CAFile)
	if err != nil {
		return TrustAnchorSet{}, fmt.Errorf("%w: cannot read trust anchors %v: %w", coapsErrors.ErrConfiguration, s.CAFile, err)
	}
	anchors, err := LoadTrustAnchors(caBytes)
	if err != nil {
		return TrustAnchorSet{}, fmt.Errorf("%w: cannot load trust anchors %v: %w", coapsErrors.ErrConfiguration, s.CAFile, err)
	}
	return anchors, nil
}
