package trace

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
	"github.com/aegis-kernel/mcpkernel/infrastructure/hex"
)

// Signer attaches an auxiliary ECDSA P-256 signature to exported proofs
// using a hash-then-sign approach: serialize the proof's contract fields in
// a stable textual form, sha256 that, then sign the digest.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner generates a fresh P-256 signing key.
func NewSigner() (*Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindTraceError, "failed to generate signing key", err)
	}
	return &Signer{key: key}, nil
}

// Sign computes the auxiliary signature for proof and returns it hex-encoded.
func (s *Signer) Sign(proof *Proof) (string, error) {
	hash := sha256.Sum256(serializeProof(proof))
	r, sVal, err := ecdsa.Sign(rand.Reader, s.key, hash[:])
	if err != nil {
		return "", kernelerr.Wrap(kernelerr.KindTraceError, "failed to sign proof", err)
	}

	sig := make([]byte, 64)
	rBytes := r.Bytes()
	sBytes := sVal.Bytes()
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	return hex.EncodeToString(sig), nil
}

// Verify checks a hex-encoded signature against proof's contract fields.
// signatureHex may optionally carry a "0x" prefix.
func (s *Signer) Verify(proof *Proof, signatureHex string) (bool, error) {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false, kernelerr.Wrap(kernelerr.KindTraceError, "invalid signature encoding", err)
	}
	if len(sig) != 64 {
		return false, kernelerr.New(kernelerr.KindTraceError, "invalid signature length")
	}

	hash := sha256.Sum256(serializeProof(proof))
	r := new(big.Int).SetBytes(sig[:32])
	sVal := new(big.Int).SetBytes(sig[32:])
	return ecdsa.Verify(&s.key.PublicKey, hash[:], r, sVal), nil
}

// PublicKey returns the uncompressed public key bytes for this signer.
func (s *Signer) PublicKey() []byte {
	return elliptic.Marshal(elliptic.P256(), s.key.PublicKey.X, s.key.PublicKey.Y)
}

// PublicKeyHex returns the uncompressed public key as a "0x"-prefixed hex
// string, suitable for display or export alongside a trace proof.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeWithPrefix(s.PublicKey())
}

func serializeProof(proof *Proof) []byte {
	return []byte(fmt.Sprintf("%s|%s|%d|%s|%d",
		proof.TraceID, proof.AgentID, proof.Entries, proof.RootHash, proof.Timestamp))
}
