package signing

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEdSignerFromBuffer(t *testing.T) {
	b := []byte{1, 2, 3}
	_, err := NewEdSigner(WithPrivateKey(b))
	require.ErrorContains(t, err, "invalid key length")

	b = make([]byte, 64)
	_, err = NewEdSigner(WithPrivateKey(b))
	require.ErrorContains(t, err, "private and public do not match")
}

func TestEdSigner_SignVerify(t *testing.T) {
	ed, err := NewEdSigner(WithPrefix([]byte("log")))
	require.NoError(t, err)

	m := make([]byte, 4)
	rand.Read(m)
	sig := ed.Sign(ENTRY, m)

	v, err := NewEdVerifier(WithVerifierPrefix([]byte("log")))
	require.NoError(t, err)
	require.True(t, v.Verify(ENTRY, ed.PublicKey().Bytes(), m, sig))
	require.False(t, v.Verify(RANGE, ed.PublicKey().Bytes(), m, sig))
	require.False(t, v.Verify(ENTRY, ed.PublicKey().Bytes(), append(m, 1), sig))
	require.False(t, v.Verify(ENTRY, ed.PublicKey().Bytes(), m, sig[:10]))

	other, err := NewEdVerifier()
	require.NoError(t, err)
	require.False(t, other.Verify(ENTRY, ed.PublicKey().Bytes(), m, sig))
}

func TestEdSigner_WithPrivateKey(t *testing.T) {
	ed, err := NewEdSigner()
	require.NoError(t, err)

	ed2, err := NewEdSigner(WithPrivateKey(ed.PrivateKey()))
	require.NoError(t, err)
	require.Equal(t, ed.priv, ed2.priv)
	require.True(t, ed.PublicKey().Equals(ed2.PublicKey()))
}

func TestEdSigner_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.key")
	ed, err := NewEdSigner(ToFile(path))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := NewEdSigner(FromFile(path))
	require.NoError(t, err)
	require.Equal(t, ed.PrivateKey(), loaded.PrivateKey())

	_, err = NewEdSigner(ToFile(path))
	require.ErrorIs(t, err, os.ErrExist)
}

func TestPublicKey_ShortString(t *testing.T) {
	pub := NewPublicKey([]byte{1, 2, 3})
	require.Equal(t, "010203", pub.String())
	require.Equal(t, "01020", pub.ShortString())

	pub = NewPublicKey([]byte{1, 2})
	require.Equal(t, pub.String(), pub.ShortString())
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "identity.key")
	created, err := LoadOrCreate(path, WithPrefix([]byte("log")))
	require.NoError(t, err)
	loaded, err := LoadOrCreate(path, WithPrefix([]byte("log")))
	require.NoError(t, err)
	require.Equal(t, created.PrivateKey(), loaded.PrivateKey())
	require.Equal(t, []byte("log"), loaded.Prefix())

	require.NoError(t, os.WriteFile(path, []byte("deadbeef"), 0o600))
	_, err = LoadOrCreate(path)
	require.ErrorContains(t, err, "invalid key size")
}
