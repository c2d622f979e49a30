package chain

import "fmt"

// BlockHeader carries the consensus-level fields of a block. The block hash
// is the canonical digest of the header.
type BlockHeader struct {
	ParentHash      BlockHash       `json:"parent_hash"`
	StateRootHash   Digest          `json:"state_root_hash"`
	BodyHash        Digest          `json:"body_hash"`
	RandomBit       bool            `json:"random_bit"`
	AccumulatedSeed Digest          `json:"accumulated_seed"`
	Timestamp       Timestamp       `json:"timestamp"`
	EraID           EraID           `json:"era_id"`
	Height          uint64          `json:"height"`
	ProtocolVersion ProtocolVersion `json:"protocol_version"`
}

// Hash derives the block hash from the header's canonical bytes.
func (h BlockHeader) Hash() (BlockHash, error) {
	d, err := canonicalDigest(h)
	if err != nil {
		return BlockHash{}, fmt.Errorf("hash block header: %w", err)
	}
	return NewBlockHash(d), nil
}

// BlockBody lists the proposer and the deploys the block commits.
type BlockBody struct {
	Proposer       PublicKey    `json:"proposer"`
	DeployHashes   []DeployHash `json:"deploy_hashes"`
	TransferHashes []DeployHash `json:"transfer_hashes"`
}

// Hash derives the body hash from the body's canonical bytes.
func (b BlockBody) Hash() (Digest, error) {
	d, err := canonicalDigest(b)
	if err != nil {
		return Digest{}, fmt.Errorf("hash block body: %w", err)
	}
	return d, nil
}

// BlockProof is a validator's finality attestation carried inside the block.
type BlockProof struct {
	PublicKey PublicKey `json:"public_key"`
	Signature Signature `json:"signature"`
}

// Block is a stored block with its identifying hash. Blocks arrive from the
// node already validated; this type does not re-check proofs.
type Block struct {
	Hash   BlockHash    `json:"hash"`
	Header BlockHeader  `json:"header"`
	Body   BlockBody    `json:"body"`
	Proofs []BlockProof `json:"proofs"`
}

// NewBlock assembles a block, filling in the body hash and block hash from
// the canonical forms of body and header.
func NewBlock(header BlockHeader, body BlockBody, proofs []BlockProof) (Block, error) {
	bodyHash, err := body.Hash()
	if err != nil {
		return Block{}, err
	}
	header.BodyHash = bodyHash
	hash, err := header.Hash()
	if err != nil {
		return Block{}, err
	}
	return Block{Hash: hash, Header: header, Body: body, Proofs: proofs}, nil
}

// Height returns the block's position on the linear chain.
func (b Block) Height() uint64 {
	return b.Header.Height
}
