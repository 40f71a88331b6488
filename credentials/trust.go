package credentials

import (
	"crypto/x509"
)

// TrustAnchorSet is an ordered set of certificates trusted as roots when verifying the peer.
type TrustAnchorSet struct {
	anchors []*x509.Certificate
}

// NewTrustAnchorSet creates a set from anchors; nil entries are skipped.
func NewTrustAnchorSet(anchors ...*x509.Certificate) TrustAnchorSet {
	s := TrustAnchorSet{anchors: make([]*x509.Certificate, 0, len(anchors))}
	for _, a := range anchors {
		if a != nil {
			s.anchors = append(s.anchors, a)
		}
	}
	return s
}

// Anchors returns the anchors in insertion order.
func (s TrustAnchorSet) Anchors() []*x509.Certificate {
	return append([]*x509.Certificate(nil), s.anchors...)
}

// Len returns the number of anchors.
func (s TrustAnchorSet) Len() int {
	return len(s.anchors)
}

// Pool returns a new pool holding the anchors. An empty set gives an empty pool, which trusts nothing.
func (s TrustAnchorSet) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	for _, a := range s.anchors {
		pool.AddCert(a)
	}
	return pool
}
