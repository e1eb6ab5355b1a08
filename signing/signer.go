package signing

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

// Domain separates signatures of different object kinds so a signature made for
// one kind can never be replayed as another.
type Domain byte

const (
	ENTRY Domain = 0
	RANGE Domain = 1
)

// String returns the string representation of a domain.
func (d Domain) String() string {
	switch d {
	case ENTRY:
		return "ENTRY"
	case RANGE:
		return "RANGE"
	default:
		return "UNKNOWN"
	}
}

type edSignerOption struct {
	priv   PrivateKey
	file   string
	prefix []byte
}

// EdSignerOptionFunc modifies EdSigner.
type EdSignerOptionFunc func(*edSignerOption) error

// WithPrefix sets the prefix used by EdSigner. This usually is the log ID.
func WithPrefix(prefix []byte) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		opt.prefix = prefix
		return nil
	}
}

// ToFile writes the private key to a file after creation.
func ToFile(path string) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		if opt.file != "" {
			return errors.New("invalid option ToFile: file already set")
		}
		opt.file = path
		return nil
	}
}

// FromFile loads the private key from a file written by ToFile.
func FromFile(path string) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		if opt.priv != nil || opt.file != "" {
			return errors.New("invalid option FromFile: key or file already set")
		}
		priv, err := LoadKey(path)
		if err != nil {
			return err
		}
		opt.priv = priv
		return nil
	}
}

// WithPrivateKey sets the private key used by EdSigner.
func WithPrivateKey(priv PrivateKey) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		if opt.priv != nil {
			return errors.New("invalid option WithPrivateKey: private key already set")
		}
		if len(priv) != ed25519.PrivateKeySize {
			return errors.New("could not create EdSigner: invalid key length")
		}
		if err := checkKeyPair(priv); err != nil {
			return err
		}
		opt.priv = priv
		return nil
	}
}

// WithKeyFromRand sets the private key used by EdSigner using predictable randomness source.
func WithKeyFromRand(rand io.Reader) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		_, priv, err := ed25519.GenerateKey(rand)
		if err != nil {
			return fmt.Errorf("could not generate key pair: %w", err)
		}
		opt.priv = priv
		return nil
	}
}

func checkKeyPair(priv PrivateKey) error {
	keyPair := ed25519.NewKeyFromSeed(priv[:32])
	if !bytes.Equal(keyPair[32:], priv.Public().(ed25519.PublicKey)) {
		return errors.New("private and public do not match")
	}
	return nil
}

// EdSigner represents an ED25519 signer.
type EdSigner struct {
	priv   PrivateKey
	prefix []byte
}

var _ Signer = &EdSigner{}

// NewEdSigner returns an ed signer. Without key options the key is generated.
func NewEdSigner(opts ...EdSignerOptionFunc) (*EdSigner, error) {
	cfg := &edSignerOption{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.priv == nil {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, fmt.Errorf("could not generate key pair: %w", err)
		}
		cfg.priv = priv

		if cfg.file != "" {
			if err := SaveKey(cfg.file, priv); err != nil {
				return nil, err
			}
		}
	}
	return &EdSigner{
		priv:   cfg.priv,
		prefix: cfg.prefix,
	}, nil
}

// Sign signs the provided message.
func (es *EdSigner) Sign(d Domain, m []byte) []byte {
	return ed25519.Sign(es.priv, signedMessage(es.prefix, d, m))
}

// PublicKey returns the public key of the signer.
func (es *EdSigner) PublicKey() *PublicKey {
	return NewPublicKey(es.priv.Public().(ed25519.PublicKey))
}

// PrivateKey returns private key.
func (es *EdSigner) PrivateKey() PrivateKey {
	return es.priv
}

// Prefix returns the prefix prepended to every signed message.
func (es *EdSigner) Prefix() []byte {
	return es.prefix
}

func (es *EdSigner) String() string {
	return es.PublicKey().ShortString()
}
