package signing

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// LoadKey reads a hex encoded private key and checks that its halves match.
func LoadKey(path string) (PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	data = bytes.TrimSpace(data)
	if n := hex.DecodedLen(len(data)); n != PrivateKeySize {
		return nil, fmt.Errorf("invalid key size %d/%d for %s", n, PrivateKeySize, filepath.Base(path))
	}
	priv := make(PrivateKey, PrivateKeySize)
	if _, err := hex.Decode(priv, data); err != nil {
		return nil, fmt.Errorf("decoding private key in %s: %w", filepath.Base(path), err)
	}
	if err := checkKeyPair(priv); err != nil {
		return nil, err
	}
	return priv, nil
}

// SaveKey atomically writes the key with owner-only permissions. An existing
// file is never overwritten.
func SaveKey(path string, priv PrivateKey) error {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("stat identity file %s: %w", filepath.Base(path), err)
	default:
		return fmt.Errorf("save identity file %s: %w", filepath.Base(path), fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader([]byte(hex.EncodeToString(priv)))); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restrict identity file permissions: %w", err)
	}
	return nil
}

// LoadOrCreate returns the signer stored at path, generating and saving a new
// key on first use.
func LoadOrCreate(path string, opts ...EdSignerOptionFunc) (*EdSigner, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return NewEdSigner(append(opts, FromFile(path))...)
	case errors.Is(err, fs.ErrNotExist):
		return NewEdSigner(append(opts, ToFile(path))...)
	default:
		return nil, fmt.Errorf("stat identity file: %w", err)
	}
}
