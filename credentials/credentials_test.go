package credentials_test

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/plgd-dev/coaps/credentials"
	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
	"github.com/plgd-dev/coaps/test/pki"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity(t *testing.T) {
	b, err := pki.NewBundle("client")
	require.NoError(t, err)

	tests := []struct {
		name     string
		psk      *credentials.PSK
		cert     *credentials.Certificate
		wantPSK  bool
		wantCert bool
		wantErr  bool
	}{
		{
			name:    "nothing",
			wantErr: true,
		},
		{
			name:    "psk",
			psk:     &credentials.PSK{Identity: []byte("Client_identity"), Secret: []byte("secretPSK")},
			wantPSK: true,
		},
		{
			name:    "psk without secret",
			psk:     &credentials.PSK{Identity: []byte("Client_identity")},
			wantErr: true,
		},
		{
			name:     "certificate",
			cert:     &credentials.Certificate{Chain: b.Leaf},
			wantCert: true,
		},
		{
			name:    "certificate without key",
			cert:    &credentials.Certificate{Chain: tls.Certificate{Certificate: b.Leaf.Certificate}},
			wantErr: true,
		},
		{
			name:     "both",
			psk:      &credentials.PSK{Identity: []byte("id"), Secret: []byte("s")},
			cert:     &credentials.Certificate{Chain: b.Leaf, SendCertificateRequest: true},
			wantPSK:  true,
			wantCert: true,
		},
		{
			name:    "psk with broken certificate",
			psk:     &credentials.PSK{Identity: []byte("id"), Secret: []byte("s")},
			cert:    &credentials.Certificate{Chain: tls.Certificate{Certificate: b.Leaf.Certificate}},
			wantPSK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := credentials.NewIdentity(tt.psk, tt.cert)
			if tt.wantErr {
				require.ErrorIs(t, err, coapsErrors.ErrConfiguration)
				require.Error(t, id.Validate())
				return
			}
			require.NoError(t, err)
			require.NoError(t, id.Validate())
			require.Equal(t, tt.wantPSK, id.HasPSK())
			require.Equal(t, tt.wantCert, id.HasCertificate())
		})
	}
}

func TestIdentityIsImmutable(t *testing.T) {
	psk := &credentials.PSK{Identity: []byte("id"), Secret: []byte("secret")}
	id, err := credentials.NewIdentity(psk, nil)
	require.NoError(t, err)
	psk.Secret[0] = 'X'
	require.Equal(t, []byte("secret"), id.PSK().Secret)
	id.PSK().Identity[0] = 'X'
	require.Equal(t, []byte("id"), id.PSK().Identity)
}

func TestFileStore(t *testing.T) {
	b, err := pki.NewBundle("client")
	require.NoError(t, err)
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o600))
		return p
	}
	store := &credentials.FileStore{
		PSKIdentity:            "Client_identity",
		PSKSecret:              "secretPSK",
		CertFile:               write("cert.pem", b.CertPEM),
		KeyFile:                write("key.pem", b.KeyPEM),
		CAFile:                 write("ca.pem", b.CAPEM),
		SendCertificateRequest: true,
	}
	id, err := store.Identity()
	require.NoError(t, err)
	require.True(t, id.HasPSK())
	require.True(t, id.HasCertificate())
	require.True(t, id.Certificate().SendCertificateRequest)
	_, ok := id.Signer()
	require.True(t, ok)
	leaf, err := id.Certificate().Leaf()
	require.NoError(t, err)
	require.Equal(t, "client", leaf.Subject.CommonName)

	anchors, err := store.TrustAnchors()
	require.NoError(t, err)
	require.Equal(t, 1, anchors.Len())
	require.True(t, anchors.Anchors()[0].Equal(b.CA))

	store.KeyFile = filepath.Join(dir, "missing.pem")
	_, err = store.Identity()
	require.ErrorIs(t, err, coapsErrors.ErrConfiguration)

	store.CAFile = write("bad.pem", []byte("garbage"))
	_, err = store.TrustAnchors()
	require.ErrorIs(t, err, coapsErrors.ErrConfiguration)
}

func TestStaticStore(t *testing.T) {
	_, err := credentials.NewStaticStore(credentials.Identity{}, credentials.TrustAnchorSet{}).Identity()
	require.ErrorIs(t, err, coapsErrors.ErrConfiguration)

	id, err := credentials.NewIdentity(&credentials.PSK{Identity: []byte("id"), Secret: []byte("s")}, nil)
	require.NoError(t, err)
	got, err := credentials.NewStaticStore(id, credentials.NewTrustAnchorSet(nil)).Identity()
	require.NoError(t, err)
	require.True(t, got.HasPSK())
}

func TestLoadKey(t *testing.T) {
	b, err := pki.NewBundle("client")
	require.NoError(t, err)
	_, err = credentials.LoadKey(b.KeyPEM)
	require.NoError(t, err)
	_, err = credentials.LoadKey(b.CertPEM)
	require.Error(t, err)
	_, err = credentials.LoadCertificate(b.KeyPEM)
	require.Error(t, err)
	_, err = credentials.LoadKeyAndCertificate(b.KeyPEM, b.CertPEM)
	require.NoError(t, err)
	empty := credentials.NewTrustAnchorSet()
	require.Equal(t, 0, empty.Len())
	require.NotNil(t, empty.Pool())
}
