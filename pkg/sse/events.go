// Package sse defines the closed set of events the sidecar emits to
// subscribers and their wire-encoding contract. Every event reports one
// already-finalized fact about node state and is immutable once constructed;
// encoding a constructed event never fails.
package sse

import (
	"encoding/json"
	"fmt"

	"github.com/blockfeed/sidecar/pkg/chain"
)

// ApiVersion is always the first event sent to a new subscriber and the only
// event that carries no transport event id.
type ApiVersion struct {
	version chain.ProtocolVersion
}

// NewApiVersion wraps the node's protocol version.
func NewApiVersion(v chain.ProtocolVersion) ApiVersion {
	return ApiVersion{version: v}
}

// Version returns the wrapped protocol version.
func (a ApiVersion) Version() chain.ProtocolVersion {
	return a.version
}

func (a ApiVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.version)
}

func (a *ApiVersion) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &a.version)
}

// BlockAdded reports that a block was durably stored on the local node's
// linear chain.
type BlockAdded struct {
	BlockHash chain.BlockHash `json:"block_hash"`
	Block     *chain.Block    `json:"block"`
}

// NewBlockAdded wraps a stored block.
func NewBlockAdded(block chain.Block) BlockAdded {
	return BlockAdded{BlockHash: block.Hash, Block: &block}
}

// HexEncodedHash returns the block hash as lowercase hex.
func (b BlockAdded) HexEncodedHash() string {
	return b.BlockHash.Hex()
}

// Height returns the block's position on the linear chain.
func (b BlockAdded) Height() uint64 {
	return b.Block.Height()
}

// DeployAccepted reports the first acceptance of a deploy into the node's
// buffer. The deploy record is shared: every subscriber serializes the same
// value, which must not be mutated after wrapping.
type DeployAccepted struct {
	deploy *chain.Deploy
}

// NewDeployAccepted wraps a shared deploy record without copying it.
func NewDeployAccepted(deploy *chain.Deploy) DeployAccepted {
	return DeployAccepted{deploy: deploy}
}

// Deploy returns the shared deploy record.
func (d DeployAccepted) Deploy() *chain.Deploy {
	return d.deploy
}

// DeployHash returns the accepted deploy's hash.
func (d DeployAccepted) DeployHash() chain.DeployHash {
	return d.deploy.Hash
}

// HexEncodedHash returns the deploy hash as lowercase hex.
func (d DeployAccepted) HexEncodedHash() string {
	return d.deploy.Hash.Hex()
}

// MarshalJSON flattens the shared deploy into the variant's own field set:
// on the wire a DeployAccepted looks like the deploy itself, with no extra
// envelope key. This is a compatibility contract, kept explicit rather than
// delegated to struct-tag flattening.
func (d DeployAccepted) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.deploy)
}

func (d *DeployAccepted) UnmarshalJSON(b []byte) error {
	var deploy chain.Deploy
	if err := json.Unmarshal(b, &deploy); err != nil {
		return err
	}
	d.deploy = &deploy
	return nil
}

// DeployProcessed reports that execution of a deploy was committed as part
// of a specific block. Dependencies keep the declaration order of the
// originating deploy header, duplicates included.
type DeployProcessed struct {
	DeployHash      chain.DeployHash      `json:"deploy_hash"`
	Account         chain.PublicKey       `json:"account"`
	Timestamp       chain.Timestamp       `json:"timestamp"`
	TTL             chain.TimeDiff        `json:"ttl"`
	Dependencies    []chain.DeployHash    `json:"dependencies"`
	BlockHash       chain.BlockHash       `json:"block_hash"`
	ExecutionResult chain.ExecutionResult `json:"execution_result"`
}

// HexEncodedHash returns the deploy hash as lowercase hex.
func (d DeployProcessed) HexEncodedHash() string {
	return d.DeployHash.Hex()
}

// DeployExpired reports that a buffered deploy's time-to-live elapsed before
// inclusion in a block.
type DeployExpired struct {
	DeployHash chain.DeployHash `json:"deploy_hash"`
}

// NewDeployExpired wraps an expired deploy's hash.
func NewDeployExpired(hash chain.DeployHash) DeployExpired {
	return DeployExpired{DeployHash: hash}
}

// HexEncodedHash returns the deploy hash as lowercase hex.
func (d DeployExpired) HexEncodedHash() string {
	return d.DeployHash.Hex()
}

// Fault reports a validator equivocation observed during an era.
type Fault struct {
	EraID     chain.EraID     `json:"era_id"`
	PublicKey chain.PublicKey `json:"public_key"`
	Timestamp chain.Timestamp `json:"timestamp"`
}

// String renders the fault across multiple lines for diagnostic display.
func (f Fault) String() string {
	return fmt.Sprintf("fault:\n  era: %d\n  public key: %s\n  timestamp: %s", f.EraID, f.PublicKey.Hex(), f.Timestamp)
}

// FinalitySignature reports receipt of a new finality signature for a block.
type FinalitySignature struct {
	inner *chain.FinalitySignature
}

// NewFinalitySignature wraps a received attestation.
func NewFinalitySignature(fs chain.FinalitySignature) FinalitySignature {
	return FinalitySignature{inner: &fs}
}

// Inner returns a copy of the wrapped attestation.
func (f FinalitySignature) Inner() chain.FinalitySignature {
	return *f.inner
}

// HexEncodedBlockHash returns the signed block's hash as lowercase hex.
func (f FinalitySignature) HexEncodedBlockHash() string {
	return f.inner.BlockHash.Hex()
}

// HexEncodedPublicKey returns the signing validator's key as lowercase hex.
func (f FinalitySignature) HexEncodedPublicKey() string {
	return f.inner.PublicKey.Hex()
}

func (f FinalitySignature) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.inner)
}

func (f *FinalitySignature) UnmarshalJSON(b []byte) error {
	var fs chain.FinalitySignature
	if err := json.Unmarshal(b, &fs); err != nil {
		return err
	}
	f.inner = &fs
	return nil
}

// Step reports the execution effects produced at era-end step processing.
type Step struct {
	EraID           chain.EraID           `json:"era_id"`
	ExecutionEffect chain.ExecutionEffect `json:"execution_effect"`
}
