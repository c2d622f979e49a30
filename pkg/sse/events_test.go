package sse_test

import (
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockfeed/sidecar/pkg/chain"
	"github.com/blockfeed/sidecar/pkg/chain/chaintest"
	"github.com/blockfeed/sidecar/pkg/sse"
	"github.com/blockfeed/sidecar/pkg/sse/ssetest"
)

func TestBlockAddedAccessors(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	ev := ssetest.RandomBlockAddedWithHeight(rng, 42)

	ba, ok := ev.BlockAdded()
	require.True(t, ok)
	require.Equal(t, uint64(42), ba.Height())
	require.Equal(t, ba.BlockHash.Hex(), ba.HexEncodedHash())
	require.Len(t, ba.HexEncodedHash(), 2*chain.DigestLength)

	// Stable: two calls yield identical strings.
	require.Equal(t, ba.HexEncodedHash(), ba.HexEncodedHash())
}

func TestBlockAddedWithHashOverride(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	hash := chaintest.RandomBlockHash(rng)
	ev := ssetest.RandomBlockAddedWithHash(rng, hash)

	ba, ok := ev.BlockAdded()
	require.True(t, ok)
	require.Equal(t, hash.Hex(), ba.HexEncodedHash())
}

func TestDeployExpiredHexExample(t *testing.T) {
	// Hash bytes 0x01 followed by 31 zero bytes must render as "01" + "00"*31.
	raw := make([]byte, chain.DigestLength)
	raw[0] = 0x01
	digest, err := chain.DigestFromBytes(raw)
	require.NoError(t, err)

	ev := sse.NewDeployExpiredEvent(chain.NewDeployHash(digest))
	de, ok := ev.DeployExpired()
	require.True(t, ok)
	require.Equal(t, "01"+strings.Repeat("00", 31), de.HexEncodedHash())

	// Encoding then decoding reproduces the same 32-byte value.
	encoded, err := ev.Encode()
	require.NoError(t, err)
	decoded, err := sse.Decode(encoded)
	require.NoError(t, err)
	got, ok := decoded.DeployExpired()
	require.True(t, ok)
	require.Equal(t, raw, got.DeployHash.Inner().Bytes())
}

func TestDeployAcceptedSharesDeployRecord(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	deploy := chaintest.RandomDeploy(rng)

	ev := sse.NewDeployAcceptedEvent(deploy)
	da, ok := ev.DeployAccepted()
	require.True(t, ok)

	// The wrapped record is the caller's value, not a copy: many subscribers
	// serializing the same accepted deploy share one allocation.
	require.Same(t, deploy, da.Deploy())
	require.Equal(t, deploy.Hash.Hex(), da.HexEncodedHash())
}

func TestDeployProcessedKeepsDependencyOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	dup := chaintest.RandomDeployHash(rng)
	deps := []chain.DeployHash{dup, chaintest.RandomDeployHash(rng), dup}

	ev := sse.NewDeployProcessedEvent(sse.DeployProcessed{
		DeployHash:      chaintest.RandomDeployHash(rng),
		Account:         chaintest.RandomPublicKey(rng),
		Timestamp:       chaintest.RandomTimestamp(rng),
		TTL:             chaintest.RandomTimeDiff(rng),
		Dependencies:    deps,
		BlockHash:       chaintest.RandomBlockHash(rng),
		ExecutionResult: chaintest.RandomExecutionResult(rng),
	})

	encoded, err := ev.Encode()
	require.NoError(t, err)
	decoded, err := sse.Decode(encoded)
	require.NoError(t, err)

	dp, ok := decoded.DeployProcessed()
	require.True(t, ok)
	// Declaration order preserved, duplicate not deduplicated.
	require.Equal(t, deps, dp.Dependencies)
}

func TestFinalitySignatureAccessors(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	fs := chaintest.RandomFinalitySignature(rng)
	ev := sse.NewFinalitySignatureEvent(fs)

	wrapped, ok := ev.FinalitySignature()
	require.True(t, ok)
	require.Equal(t, fs.BlockHash.Hex(), wrapped.HexEncodedBlockHash())
	require.Equal(t, fs.PublicKey.Hex(), wrapped.HexEncodedPublicKey())
	require.Len(t, wrapped.HexEncodedBlockHash(), 2*chain.DigestLength)
	require.Len(t, wrapped.HexEncodedPublicKey(), 2*len(fs.PublicKey.Bytes()))
	require.Equal(t, fs, wrapped.Inner())
}

func TestFaultStringIsMultiLine(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	ev := ssetest.RandomFault(rng)

	f, ok := ev.Fault()
	require.True(t, ok)

	rendered := f.String()
	require.True(t, strings.Contains(rendered, "\n"))
	require.Contains(t, rendered, f.PublicKey.Hex())
	require.Contains(t, rendered, "era:")
	// Stable output.
	require.Equal(t, rendered, f.String())
}

func TestApiVersionCarriesVersionOnly(t *testing.T) {
	v, err := chain.ParseProtocolVersion("1.4.2")
	require.NoError(t, err)
	ev := sse.NewApiVersionEvent(v)

	av, ok := ev.ApiVersion()
	require.True(t, ok)
	require.Equal(t, v, av.Version())

	encoded, err := ev.Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"ApiVersion":"1.4.2"}`, string(encoded))
}

func TestAccessorsReturnFalseForOtherVariants(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	ev := ssetest.RandomBlockAdded(rng)

	_, ok := ev.DeployAccepted()
	require.False(t, ok)
	_, ok = ev.ApiVersion()
	require.False(t, ok)
	_, ok = ev.Step()
	require.False(t, ok)
}

func TestRandomGeneratorsAreDeterministicFromSeed(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		a := ssetest.RandomEvent(rand.New(rand.NewSource(seed)))
		b := ssetest.RandomEvent(rand.New(rand.NewSource(seed)))
		require.Equal(t, a.Type(), b.Type())

		rawA, err := json.Marshal(a)
		require.NoError(t, err)
		rawB, err := json.Marshal(b)
		require.NoError(t, err)
		require.Equal(t, string(rawA), string(rawB))
	}
}
