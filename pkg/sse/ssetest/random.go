// Package ssetest builds structurally valid random events from a seeded
// source, one constructor per variant, for fixture and property tests.
// It is test-only: the emission path never imports it, and it has no say in
// the wire contract.
package ssetest

import (
	"math/rand"

	"github.com/blockfeed/sidecar/pkg/chain"
	"github.com/blockfeed/sidecar/pkg/chain/chaintest"
	"github.com/blockfeed/sidecar/pkg/sse"
)

// RandomApiVersion returns a sentinel with an arbitrary protocol version.
func RandomApiVersion(rng *rand.Rand) sse.Event {
	return sse.NewApiVersionEvent(chaintest.RandomProtocolVersion(rng))
}

// RandomBlockAdded returns a BlockAdded for an arbitrary block.
func RandomBlockAdded(rng *rand.Rand) sse.Event {
	return sse.NewBlockAddedEvent(chaintest.RandomBlock(rng))
}

// RandomBlockAddedWithHeight pins the wrapped block to the given height.
func RandomBlockAddedWithHeight(rng *rand.Rand, height uint64) sse.Event {
	return sse.NewBlockAddedEvent(chaintest.RandomBlockAtHeight(rng, height))
}

// RandomBlockAddedWithHash overrides the identifying block hash while
// keeping the rest of the block arbitrary.
func RandomBlockAddedWithHash(rng *rand.Rand, hash chain.BlockHash) sse.Event {
	block := chaintest.RandomBlock(rng)
	block.Hash = hash
	return sse.NewBlockAddedEvent(block)
}

// RandomDeployAccepted returns a DeployAccepted wrapping a fresh deploy.
func RandomDeployAccepted(rng *rand.Rand) sse.Event {
	return sse.NewDeployAcceptedEvent(chaintest.RandomDeploy(rng))
}

// RandomDeployProcessed derives its fields from a freshly generated deploy.
// If withHash is non-nil it overrides the identifying deploy hash.
func RandomDeployProcessed(rng *rand.Rand, withHash *chain.DeployHash) sse.Event {
	deploy := chaintest.RandomDeploy(rng)
	hash := deploy.Hash
	if withHash != nil {
		hash = *withHash
	}
	return sse.NewDeployProcessedEvent(sse.DeployProcessed{
		DeployHash:      hash,
		Account:         deploy.Header.Account,
		Timestamp:       deploy.Header.Timestamp,
		TTL:             deploy.Header.TTL,
		Dependencies:    deploy.Header.Dependencies,
		BlockHash:       chaintest.RandomBlockHash(rng),
		ExecutionResult: chaintest.RandomExecutionResult(rng),
	})
}

// RandomDeployExpired returns a DeployExpired for a fresh deploy's hash, or
// for withHash if non-nil.
func RandomDeployExpired(rng *rand.Rand, withHash *chain.DeployHash) sse.Event {
	hash := chaintest.RandomDeploy(rng).Hash
	if withHash != nil {
		hash = *withHash
	}
	return sse.NewDeployExpiredEvent(hash)
}

// RandomFault returns a validator fault in an arbitrary era.
func RandomFault(rng *rand.Rand) sse.Event {
	return sse.NewFaultEvent(sse.Fault{
		EraID:     chaintest.RandomEraID(rng),
		PublicKey: chaintest.RandomPublicKey(rng),
		Timestamp: chaintest.RandomTimestamp(rng),
	})
}

// RandomFinalitySignature returns a FinalitySignature wrapping a verifiable
// attestation.
func RandomFinalitySignature(rng *rand.Rand) sse.Event {
	return sse.NewFinalitySignatureEvent(chaintest.RandomFinalitySignature(rng))
}

// RandomStep returns a Step with the effect of a fresh execution result.
func RandomStep(rng *rand.Rand) sse.Event {
	return sse.NewStepEvent(sse.Step{
		EraID:           chaintest.RandomEraID(rng),
		ExecutionEffect: chaintest.RandomExecutionResult(rng).Effect(),
	})
}

// RandomEvent returns an arbitrary non-sentinel domain event.
func RandomEvent(rng *rand.Rand) sse.Event {
	generators := []func(*rand.Rand) sse.Event{
		RandomBlockAdded,
		RandomDeployAccepted,
		func(rng *rand.Rand) sse.Event { return RandomDeployProcessed(rng, nil) },
		func(rng *rand.Rand) sse.Event { return RandomDeployExpired(rng, nil) },
		RandomFault,
		RandomFinalitySignature,
		RandomStep,
	}
	return generators[rng.Intn(len(generators))](rng)
}
