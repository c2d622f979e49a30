package chain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HexBytes is an opaque byte payload rendered as lowercase hex on the wire.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex payload: %w", err)
	}
	*h = decoded
	return nil
}

// DeployHeader carries the deploy's submission metadata. Dependencies keep
// their declaration order; duplicates are preserved as declared.
type DeployHeader struct {
	Account      PublicKey    `json:"account"`
	Timestamp    Timestamp    `json:"timestamp"`
	TTL          TimeDiff     `json:"ttl"`
	GasPrice     uint64       `json:"gas_price"`
	BodyHash     Digest       `json:"body_hash"`
	Dependencies []DeployHash `json:"dependencies"`
	ChainName    string       `json:"chain_name"`
}

// Hash derives the deploy hash from the header's canonical bytes.
func (h DeployHeader) Hash() (DeployHash, error) {
	d, err := canonicalDigest(h)
	if err != nil {
		return DeployHash{}, fmt.Errorf("hash deploy header: %w", err)
	}
	return NewDeployHash(d), nil
}

// ExecutableItem is a payment or session item: a module payload plus its
// serialized runtime arguments.
type ExecutableItem struct {
	ModuleBytes HexBytes `json:"module_bytes"`
	Args        HexBytes `json:"args"`
}

// Approval is an account signature over the deploy hash.
type Approval struct {
	Signer    PublicKey `json:"signer"`
	Signature Signature `json:"signature"`
}

// Deploy is a unit of work submitted to the chain. Deploys reaching the
// sidecar were already validated by the node and are treated as immutable.
type Deploy struct {
	Hash      DeployHash     `json:"hash"`
	Header    DeployHeader   `json:"header"`
	Payment   ExecutableItem `json:"payment"`
	Session   ExecutableItem `json:"session"`
	Approvals []Approval     `json:"approvals"`
}

// NewDeploy assembles a deploy, deriving the body hash from payment and
// session and the deploy hash from the finished header.
func NewDeploy(header DeployHeader, payment, session ExecutableItem, approvals []Approval) (*Deploy, error) {
	bodyHash, err := canonicalDigest(struct {
		Payment ExecutableItem `json:"payment"`
		Session ExecutableItem `json:"session"`
	}{payment, session})
	if err != nil {
		return nil, fmt.Errorf("hash deploy body: %w", err)
	}
	header.BodyHash = bodyHash
	hash, err := header.Hash()
	if err != nil {
		return nil, err
	}
	return &Deploy{
		Hash:      hash,
		Header:    header,
		Payment:   payment,
		Session:   session,
		Approvals: approvals,
	}, nil
}
