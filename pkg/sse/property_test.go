//go:build property
// +build property

// Property-based tests for the event wire contract: round-trip fidelity,
// encoding determinism and hex-accessor stability over seeded random events.
package sse_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/blockfeed/sidecar/pkg/chain"
	"github.com/blockfeed/sidecar/pkg/sse"
	"github.com/blockfeed/sidecar/pkg/sse/ssetest"
)

// TestRoundTripProperty verifies decode(encode(e)) == e for arbitrary events.
func TestRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode inverts encode for every variant", prop.ForAll(
		func(seed int64) bool {
			ev := ssetest.RandomEvent(rand.New(rand.NewSource(seed)))

			encoded, err := ev.Encode()
			if err != nil {
				return false
			}
			decoded, err := sse.Decode(encoded)
			if err != nil {
				return false
			}
			re, err := decoded.Encode()
			if err != nil {
				return false
			}
			return decoded.Type() == ev.Type() && bytes.Equal(encoded, re)
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// TestCanonicalDeterminismProperty verifies two canonical encodings of the
// same event are byte-identical.
func TestCanonicalDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("canonical encoding is deterministic", prop.ForAll(
		func(seed int64) bool {
			ev := ssetest.RandomEvent(rand.New(rand.NewSource(seed)))

			a, err := ev.Canonical()
			if err != nil {
				return false
			}
			b, err := ev.Canonical()
			if err != nil {
				return false
			}
			return bytes.Equal(a, b)
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// TestHexAccessorProperty verifies hex accessors are stable and exactly twice
// the byte length of the underlying hash.
func TestHexAccessorProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("hex accessors are stable with 2x byte length", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))

			ba, _ := ssetest.RandomBlockAdded(rng).BlockAdded()
			de, _ := ssetest.RandomDeployExpired(rng, nil).DeployExpired()
			fs, _ := ssetest.RandomFinalitySignature(rng).FinalitySignature()

			return ba.HexEncodedHash() == ba.HexEncodedHash() &&
				len(ba.HexEncodedHash()) == 2*chain.DigestLength &&
				de.HexEncodedHash() == de.HexEncodedHash() &&
				len(de.HexEncodedHash()) == 2*chain.DigestLength &&
				fs.HexEncodedPublicKey() == fs.HexEncodedPublicKey() &&
				len(fs.HexEncodedPublicKey()) == 2*len(fs.Inner().PublicKey.Bytes())
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// TestHeightPinningProperty verifies the height override always surfaces
// through the accessor regardless of other block contents.
func TestHeightPinningProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("pinned height is exposed unchanged", prop.ForAll(
		func(seed int64, height uint64) bool {
			ba, ok := ssetest.RandomBlockAddedWithHeight(rand.New(rand.NewSource(seed)), height).BlockAdded()
			return ok && ba.Height() == height
		},
		gen.Int64(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
