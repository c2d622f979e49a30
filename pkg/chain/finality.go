package chain

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
)

// FinalitySignature is a validator's attestation that a block is finalized.
type FinalitySignature struct {
	BlockHash BlockHash `json:"block_hash"`
	EraID     EraID     `json:"era_id"`
	Signature Signature `json:"signature"`
	PublicKey PublicKey `json:"public_key"`
}

// NewFinalitySignature wraps an already-verified attestation.
func NewFinalitySignature(blockHash BlockHash, eraID EraID, sig Signature, pub PublicKey) FinalitySignature {
	return FinalitySignature{BlockHash: blockHash, EraID: eraID, Signature: sig, PublicKey: pub}
}

// SignFinality produces an attestation for a block with an ed25519 key.
func SignFinality(blockHash BlockHash, eraID EraID, priv ed25519.PrivateKey) (FinalitySignature, error) {
	pub, err := Ed25519PublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return FinalitySignature{}, err
	}
	raw := ed25519.Sign(priv, finalityMessage(blockHash, eraID))
	sig, err := NewSignature(KeyAlgorithmEd25519, raw)
	if err != nil {
		return FinalitySignature{}, err
	}
	return NewFinalitySignature(blockHash, eraID, sig, pub), nil
}

// Verify checks the signature against the block hash, era and public key.
func (fs FinalitySignature) Verify() error {
	if fs.PublicKey.Algorithm() != KeyAlgorithmEd25519 {
		return fmt.Errorf("unsupported key algorithm %s", fs.PublicKey.Algorithm())
	}
	if !ed25519.Verify(fs.PublicKey.Material(), finalityMessage(fs.BlockHash, fs.EraID), fs.Signature.Material()) {
		return fmt.Errorf("finality signature does not verify for block %s", fs.BlockHash.Hex())
	}
	return nil
}

// finalityMessage is the signed payload: block hash bytes followed by the
// era id in big-endian form.
func finalityMessage(blockHash BlockHash, eraID EraID) []byte {
	msg := make([]byte, DigestLength+8)
	copy(msg, blockHash.Inner().Bytes())
	binary.BigEndian.PutUint64(msg[DigestLength:], uint64(eraID))
	return msg
}
