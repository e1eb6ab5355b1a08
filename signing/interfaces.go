package signing

// Signer produces domain-separated signatures on behalf of a log author.
type Signer interface {
	Sign(d Domain, msg []byte) []byte
	PublicKey() *PublicKey
}

// Verifier checks domain-separated signatures.
type Verifier interface {
	Verify(d Domain, pub, msg, sig []byte) bool
}
