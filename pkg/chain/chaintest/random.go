// Package chaintest builds structurally valid random domain objects from a
// seeded source, for fixture and property tests. Nothing on the emission path
// imports this package.
package chaintest

import (
	"crypto/ed25519"
	"fmt"
	"math/rand"
	"time"

	"github.com/blockfeed/sidecar/pkg/chain"
)

// RandomDigest returns a digest with arbitrary bytes.
func RandomDigest(rng *rand.Rand) chain.Digest {
	b := make([]byte, chain.DigestLength)
	rng.Read(b)
	d, err := chain.DigestFromBytes(b)
	if err != nil {
		panic(fmt.Sprintf("chaintest: random digest: %v", err))
	}
	return d
}

// RandomBlockHash returns an arbitrary block hash.
func RandomBlockHash(rng *rand.Rand) chain.BlockHash {
	return chain.NewBlockHash(RandomDigest(rng))
}

// RandomDeployHash returns an arbitrary deploy hash.
func RandomDeployHash(rng *rand.Rand) chain.DeployHash {
	return chain.NewDeployHash(RandomDigest(rng))
}

// RandomKeyPair generates a deterministic ed25519 key pair from rng.
func RandomKeyPair(rng *rand.Rand) (chain.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(rng)
	if err != nil {
		panic(fmt.Sprintf("chaintest: generate key: %v", err))
	}
	wrapped, err := chain.Ed25519PublicKey(pub)
	if err != nil {
		panic(fmt.Sprintf("chaintest: wrap key: %v", err))
	}
	return wrapped, priv
}

// RandomPublicKey generates a deterministic ed25519 public key from rng.
func RandomPublicKey(rng *rand.Rand) chain.PublicKey {
	pub, _ := RandomKeyPair(rng)
	return pub
}

// RandomSignature returns a structurally valid (not verifiable) signature.
func RandomSignature(rng *rand.Rand) chain.Signature {
	raw := make([]byte, ed25519.SignatureSize)
	rng.Read(raw)
	sig, err := chain.NewSignature(chain.KeyAlgorithmEd25519, raw)
	if err != nil {
		panic(fmt.Sprintf("chaintest: random signature: %v", err))
	}
	return sig
}

// RandomTimestamp returns a timestamp within roughly a decade of 2020.
func RandomTimestamp(rng *rand.Rand) chain.Timestamp {
	base := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := time.Duration(rng.Int63n(int64(10 * 365 * 24 * time.Hour)))
	return chain.NewTimestamp(base.Add(offset))
}

// RandomTimeDiff returns a duration between one second and one day.
func RandomTimeDiff(rng *rand.Rand) chain.TimeDiff {
	return chain.NewTimeDiff(time.Second + time.Duration(rng.Int63n(int64(24*time.Hour))))
}

// RandomProtocolVersion returns a small arbitrary protocol version.
func RandomProtocolVersion(rng *rand.Rand) chain.ProtocolVersion {
	return chain.ProtocolVersion{
		Major: uint64(rng.Intn(10)),
		Minor: uint64(rng.Intn(100)),
		Patch: uint64(rng.Intn(100)),
	}
}

// RandomEraID returns an arbitrary era counter.
func RandomEraID(rng *rand.Rand) chain.EraID {
	return chain.EraID(rng.Uint64() >> 1)
}

// RandomBlock returns a block at an arbitrary height.
func RandomBlock(rng *rand.Rand) chain.Block {
	return RandomBlockAtHeight(rng, uint64(rng.Int63n(1_000_000)))
}

// RandomBlockAtHeight returns a block pinned to the given height.
func RandomBlockAtHeight(rng *rand.Rand, height uint64) chain.Block {
	header := chain.BlockHeader{
		ParentHash:      RandomBlockHash(rng),
		StateRootHash:   RandomDigest(rng),
		RandomBit:       rng.Intn(2) == 0,
		AccumulatedSeed: RandomDigest(rng),
		Timestamp:       RandomTimestamp(rng),
		EraID:           RandomEraID(rng),
		Height:          height,
		ProtocolVersion: RandomProtocolVersion(rng),
	}
	body := chain.BlockBody{
		Proposer:       RandomPublicKey(rng),
		DeployHashes:   randomDeployHashes(rng, 1+rng.Intn(3)),
		TransferHashes: randomDeployHashes(rng, rng.Intn(2)),
	}
	var proofs []chain.BlockProof
	for i := 0; i < 1+rng.Intn(3); i++ {
		proofs = append(proofs, chain.BlockProof{
			PublicKey: RandomPublicKey(rng),
			Signature: RandomSignature(rng),
		})
	}
	block, err := chain.NewBlock(header, body, proofs)
	if err != nil {
		panic(fmt.Sprintf("chaintest: random block: %v", err))
	}
	return block
}

// RandomDeploy returns a deploy with one to four dependencies.
func RandomDeploy(rng *rand.Rand) *chain.Deploy {
	header := chain.DeployHeader{
		Account:      RandomPublicKey(rng),
		Timestamp:    RandomTimestamp(rng),
		TTL:          RandomTimeDiff(rng),
		GasPrice:     1 + uint64(rng.Intn(10)),
		Dependencies: randomDeployHashes(rng, 1+rng.Intn(4)),
		ChainName:    fmt.Sprintf("chain-%d", rng.Intn(100)),
	}
	deploy, err := chain.NewDeploy(header, randomExecutableItem(rng), randomExecutableItem(rng), []chain.Approval{{
		Signer:    RandomPublicKey(rng),
		Signature: RandomSignature(rng),
	}})
	if err != nil {
		panic(fmt.Sprintf("chaintest: random deploy: %v", err))
	}
	return deploy
}

// RandomExecutionEffect returns an effect with a handful of transforms.
func RandomExecutionEffect(rng *rand.Rand) chain.ExecutionEffect {
	kinds := []chain.TransformKind{
		chain.TransformIdentity,
		chain.TransformWriteBytes,
		chain.TransformWriteAccount,
		chain.TransformAddUInt64,
	}
	ops := []chain.OpKind{chain.OpRead, chain.OpWrite, chain.OpAdd, chain.OpNoOp}

	effect := chain.ExecutionEffect{
		Operations: []chain.Operation{},
		Transforms: []chain.TransformEntry{},
	}
	for i := 0; i < 1+rng.Intn(4); i++ {
		key := fmt.Sprintf("hash-%s", RandomDigest(rng).Hex())
		effect.Operations = append(effect.Operations, chain.Operation{Key: key, Kind: ops[rng.Intn(len(ops))]})
		transform := chain.Transform{Kind: kinds[rng.Intn(len(kinds))]}
		switch transform.Kind {
		case chain.TransformAddUInt64:
			transform.Value = rng.Uint64() >> 1
		case chain.TransformWriteBytes, chain.TransformWriteAccount:
			data := make([]byte, 8+rng.Intn(24))
			rng.Read(data)
			transform.Data = data
		}
		effect.Transforms = append(effect.Transforms, chain.TransformEntry{Key: key, Transform: transform})
	}
	return effect
}

// RandomExecutionResult returns a success or failure result at even odds.
func RandomExecutionResult(rng *rand.Rand) chain.ExecutionResult {
	outcome := chain.ExecutionOutcome{
		Effect:    RandomExecutionEffect(rng),
		Transfers: []string{},
		Cost:      uint64(rng.Int63n(1_000_000)),
	}
	if rng.Intn(2) == 0 {
		return chain.SuccessResult(outcome)
	}
	return chain.FailureResult(outcome, fmt.Sprintf("execution error %d", rng.Intn(100)))
}

// RandomFinalitySignature returns a verifiable attestation for an arbitrary
// block by a freshly generated validator key.
func RandomFinalitySignature(rng *rand.Rand) chain.FinalitySignature {
	_, priv := RandomKeyPair(rng)
	fs, err := chain.SignFinality(RandomBlockHash(rng), RandomEraID(rng), priv)
	if err != nil {
		panic(fmt.Sprintf("chaintest: random finality signature: %v", err))
	}
	return fs
}

func randomDeployHashes(rng *rand.Rand, n int) []chain.DeployHash {
	hashes := make([]chain.DeployHash, 0, n)
	for i := 0; i < n; i++ {
		hashes = append(hashes, RandomDeployHash(rng))
	}
	return hashes
}

func randomExecutableItem(rng *rand.Rand) chain.ExecutableItem {
	module := make([]byte, 16+rng.Intn(48))
	rng.Read(module)
	args := make([]byte, rng.Intn(32))
	rng.Read(args)
	return chain.ExecutableItem{ModuleBytes: module, Args: args}
}
