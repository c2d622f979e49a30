package chain

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// KeyAlgorithm tags the signature scheme of a public key or signature.
type KeyAlgorithm byte

const (
	// KeyAlgorithmEd25519 is the only scheme the sidecar currently handles.
	KeyAlgorithmEd25519 KeyAlgorithm = 0x01
)

func (a KeyAlgorithm) String() string {
	switch a {
	case KeyAlgorithmEd25519:
		return "ed25519"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(a))
	}
}

// PublicKey is an algorithm-tagged validator or account key. The tagged bytes
// (algorithm byte followed by key material) are the canonical binary form;
// Hex derives the textual form on demand.
type PublicKey struct {
	data []byte // tag byte + key material
}

// NewPublicKey builds a key from an algorithm tag and raw key material.
func NewPublicKey(alg KeyAlgorithm, material []byte) (PublicKey, error) {
	if alg != KeyAlgorithmEd25519 {
		return PublicKey{}, fmt.Errorf("unsupported key algorithm 0x%02x", byte(alg))
	}
	if len(material) != ed25519.PublicKeySize {
		return PublicKey{}, fmt.Errorf("ed25519 key must be %d bytes, got %d", ed25519.PublicKeySize, len(material))
	}
	data := make([]byte, 1+len(material))
	data[0] = byte(alg)
	copy(data[1:], material)
	return PublicKey{data: data}, nil
}

// Ed25519PublicKey wraps an ed25519 key.
func Ed25519PublicKey(key ed25519.PublicKey) (PublicKey, error) {
	return NewPublicKey(KeyAlgorithmEd25519, key)
}

// Algorithm returns the key's signature scheme.
func (k PublicKey) Algorithm() KeyAlgorithm {
	if len(k.data) == 0 {
		return 0
	}
	return KeyAlgorithm(k.data[0])
}

// Bytes returns a copy of the canonical tagged bytes.
func (k PublicKey) Bytes() []byte {
	b := make([]byte, len(k.data))
	copy(b, k.data)
	return b
}

// Material returns a copy of the raw key material without the algorithm tag.
func (k PublicKey) Material() []byte {
	if len(k.data) < 1 {
		return nil
	}
	b := make([]byte, len(k.data)-1)
	copy(b, k.data[1:])
	return b
}

// Hex returns the lowercase hexadecimal form of the tagged bytes.
func (k PublicKey) Hex() string {
	return hex.EncodeToString(k.data)
}

func (k PublicKey) String() string { return k.Hex() }

// Equal reports whether both keys have identical tagged bytes.
func (k PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(k.data, other.data)
}

func (k PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Hex())
}

func (k *PublicKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := PublicKeyFromHex(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PublicKeyFromHex parses the tagged hex form of a key. Decoder-side only.
func PublicKeyFromHex(s string) (PublicKey, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(data) < 2 {
		return PublicKey{}, fmt.Errorf("public key too short: %d bytes", len(data))
	}
	return NewPublicKey(KeyAlgorithm(data[0]), data[1:])
}

// Signature is an algorithm-tagged signature, stored like PublicKey.
type Signature struct {
	data []byte // tag byte + signature bytes
}

// NewSignature builds a signature from an algorithm tag and raw bytes.
func NewSignature(alg KeyAlgorithm, raw []byte) (Signature, error) {
	if alg != KeyAlgorithmEd25519 {
		return Signature{}, fmt.Errorf("unsupported signature algorithm 0x%02x", byte(alg))
	}
	if len(raw) != ed25519.SignatureSize {
		return Signature{}, fmt.Errorf("ed25519 signature must be %d bytes, got %d", ed25519.SignatureSize, len(raw))
	}
	data := make([]byte, 1+len(raw))
	data[0] = byte(alg)
	copy(data[1:], raw)
	return Signature{data: data}, nil
}

// Algorithm returns the signature's scheme.
func (s Signature) Algorithm() KeyAlgorithm {
	if len(s.data) == 0 {
		return 0
	}
	return KeyAlgorithm(s.data[0])
}

// Bytes returns a copy of the canonical tagged bytes.
func (s Signature) Bytes() []byte {
	b := make([]byte, len(s.data))
	copy(b, s.data)
	return b
}

// Material returns a copy of the raw signature bytes without the tag.
func (s Signature) Material() []byte {
	if len(s.data) < 1 {
		return nil
	}
	b := make([]byte, len(s.data)-1)
	copy(b, s.data[1:])
	return b
}

// Hex returns the lowercase hexadecimal form of the tagged bytes.
func (s Signature) Hex() string {
	return hex.EncodeToString(s.data)
}

func (s Signature) String() string { return s.Hex() }

// Equal reports whether both signatures have identical tagged bytes.
func (s Signature) Equal(other Signature) bool {
	return bytes.Equal(s.data, other.data)
}

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Hex())
}

func (s *Signature) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	parsed, err := SignatureFromHex(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SignatureFromHex parses the tagged hex form of a signature. Decoder-side only.
func SignatureFromHex(str string) (Signature, error) {
	data, err := hex.DecodeString(str)
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(data) < 2 {
		return Signature{}, fmt.Errorf("signature too short: %d bytes", len(data))
	}
	return NewSignature(KeyAlgorithm(data[0]), data[1:])
}
