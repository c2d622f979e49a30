package sse_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/blockfeed/sidecar/pkg/sse"
)

// payloadSchemas pin the wire shape of each variant independently of
// encoding/json defaults, so the flattening and field-set contracts stay
// auditable. additionalProperties is false throughout: a payload growing an
// envelope key is a contract break, not an extension.
var payloadSchemas = map[sse.EventType]string{
	sse.TypeApiVersion: `{
		"type": "string",
		"pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+$"
	}`,
	sse.TypeBlockAdded: `{
		"type": "object",
		"required": ["block_hash", "block"],
		"additionalProperties": false,
		"properties": {
			"block_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
			"block": {
				"type": "object",
				"required": ["hash", "header", "body", "proofs"],
				"properties": {
					"hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
					"header": {
						"type": "object",
						"required": ["parent_hash", "state_root_hash", "body_hash", "era_id", "height", "timestamp", "protocol_version"]
					}
				}
			}
		}
	}`,
	sse.TypeDeployAccepted: `{
		"type": "object",
		"required": ["hash", "header", "payment", "session", "approvals"],
		"additionalProperties": false,
		"properties": {
			"hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
			"header": {
				"type": "object",
				"required": ["account", "timestamp", "ttl", "gas_price", "body_hash", "dependencies", "chain_name"],
				"properties": {
					"dependencies": {
						"type": "array",
						"items": {"type": "string", "pattern": "^[0-9a-f]{64}$"}
					}
				}
			},
			"payment": {"type": "object"},
			"session": {"type": "object"},
			"approvals": {"type": "array"}
		}
	}`,
	sse.TypeDeployProcessed: `{
		"type": "object",
		"required": ["deploy_hash", "account", "timestamp", "ttl", "dependencies", "block_hash", "execution_result"],
		"additionalProperties": false,
		"properties": {
			"deploy_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
			"account": {"type": "string", "pattern": "^[0-9a-f]+$"},
			"timestamp": {"type": "string"},
			"ttl": {"type": "string"},
			"dependencies": {"type": "array"},
			"block_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
			"execution_result": {
				"type": "object",
				"minProperties": 1,
				"maxProperties": 1,
				"properties": {
					"Success": {"type": "object"},
					"Failure": {"type": "object"}
				},
				"additionalProperties": false
			}
		}
	}`,
	sse.TypeDeployExpired: `{
		"type": "object",
		"required": ["deploy_hash"],
		"additionalProperties": false,
		"properties": {
			"deploy_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"}
		}
	}`,
	sse.TypeFault: `{
		"type": "object",
		"required": ["era_id", "public_key", "timestamp"],
		"additionalProperties": false,
		"properties": {
			"era_id": {"type": "integer", "minimum": 0},
			"public_key": {"type": "string", "pattern": "^[0-9a-f]+$"},
			"timestamp": {"type": "string"}
		}
	}`,
	sse.TypeFinalitySignature: `{
		"type": "object",
		"required": ["block_hash", "era_id", "signature", "public_key"],
		"additionalProperties": false,
		"properties": {
			"block_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
			"era_id": {"type": "integer", "minimum": 0},
			"signature": {"type": "string", "pattern": "^[0-9a-f]+$"},
			"public_key": {"type": "string", "pattern": "^[0-9a-f]+$"}
		}
	}`,
	sse.TypeStep: `{
		"type": "object",
		"required": ["era_id", "execution_effect"],
		"additionalProperties": false,
		"properties": {
			"era_id": {"type": "integer", "minimum": 0},
			"execution_effect": {
				"type": "object",
				"required": ["operations", "transforms"]
			}
		}
	}`,
}

func compileSchema(t *testing.T, typ sse.EventType, schemaJSON string) *jsonschema.Schema {
	t.Helper()
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://blockfeed.schemas.local/sse/%s.schema.json", typ)
	require.NoError(t, c.AddResource(url, strings.NewReader(schemaJSON)))
	schema, err := c.Compile(url)
	require.NoError(t, err)
	return schema
}

func TestEncodedEventsMatchWireSchemas(t *testing.T) {
	for typ, ev := range everyVariant(t) {
		t.Run(string(typ), func(t *testing.T) {
			schemaJSON, ok := payloadSchemas[typ]
			require.True(t, ok, "no schema for %s", typ)
			schema := compileSchema(t, typ, schemaJSON)

			encoded, err := ev.Encode()
			require.NoError(t, err)

			var record map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(encoded, &record))
			require.Len(t, record, 1)

			var payload any
			require.NoError(t, json.Unmarshal(record[string(typ)], &payload))
			require.NoError(t, schema.Validate(payload))
		})
	}
}

func TestEverySchemaCoversOneVariant(t *testing.T) {
	require.Len(t, payloadSchemas, len(sse.Types()))
	for _, typ := range sse.Types() {
		require.Contains(t, payloadSchemas, typ)
	}
}
