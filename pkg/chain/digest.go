// Package chain defines the domain objects the sidecar receives from the
// node: blocks, deploys, finality signatures and execution results, in their
// canonical wire form. Hash and key material is kept as raw bytes; the
// lowercase-hex textual form is always derived on demand.
package chain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/blake2b"
)

// DigestLength is the byte length of every digest on the chain.
const DigestLength = 32

// Digest is a blake2b-256 hash of canonical bytes.
type Digest [DigestLength]byte

// NewDigest hashes data with blake2b-256.
func NewDigest(data []byte) Digest {
	return blake2b.Sum256(data)
}

// DigestFromBytes copies b into a Digest. b must be exactly DigestLength bytes.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestLength {
		return d, fmt.Errorf("digest must be %d bytes, got %d", DigestLength, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// DigestFromHex parses the lowercase-hex form of a digest. This is the
// decoder-side inverse of Hex; the taxonomy itself only ever encodes.
func DigestFromHex(s string) (Digest, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid digest hex: %w", err)
	}
	return DigestFromBytes(b)
}

// Hex returns the lowercase hexadecimal form of the digest.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns a copy of the raw digest bytes.
func (d Digest) Bytes() []byte {
	b := make([]byte, DigestLength)
	copy(b, d[:])
	return b
}

func (d Digest) String() string {
	return d.Hex()
}

func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Hex())
}

func (d *Digest) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := DigestFromHex(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// BlockHash identifies a block on the linear chain.
type BlockHash Digest

// NewBlockHash wraps a digest as a block hash.
func NewBlockHash(d Digest) BlockHash {
	return BlockHash(d)
}

// Inner returns the underlying digest.
func (h BlockHash) Inner() Digest { return Digest(h) }

// Hex returns the lowercase hexadecimal form of the hash.
func (h BlockHash) Hex() string { return Digest(h).Hex() }

func (h BlockHash) String() string { return h.Hex() }

func (h BlockHash) MarshalJSON() ([]byte, error) { return Digest(h).MarshalJSON() }

func (h *BlockHash) UnmarshalJSON(b []byte) error { return (*Digest)(h).UnmarshalJSON(b) }

// DeployHash identifies a deploy.
type DeployHash Digest

// NewDeployHash wraps a digest as a deploy hash.
func NewDeployHash(d Digest) DeployHash {
	return DeployHash(d)
}

// Inner returns the underlying digest.
func (h DeployHash) Inner() Digest { return Digest(h) }

// Hex returns the lowercase hexadecimal form of the hash.
func (h DeployHash) Hex() string { return Digest(h).Hex() }

func (h DeployHash) String() string { return h.Hex() }

func (h DeployHash) MarshalJSON() ([]byte, error) { return Digest(h).MarshalJSON() }

func (h *DeployHash) UnmarshalJSON(b []byte) error { return (*Digest)(h).UnmarshalJSON(b) }

// canonicalDigest hashes the RFC 8785 canonical JSON form of v. It is how
// block and deploy identifiers are derived from their headers.
func canonicalDigest(v any) (Digest, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Digest{}, fmt.Errorf("marshal for hashing: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return Digest{}, fmt.Errorf("canonicalize for hashing: %w", err)
	}
	return NewDigest(canonical), nil
}
