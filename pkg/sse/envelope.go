package sse

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/blockfeed/sidecar/pkg/chain"
)

// EventType is the wire discriminator identifying a variant.
type EventType string

const (
	TypeApiVersion        EventType = "ApiVersion"
	TypeBlockAdded        EventType = "BlockAdded"
	TypeDeployAccepted    EventType = "DeployAccepted"
	TypeDeployProcessed   EventType = "DeployProcessed"
	TypeDeployExpired     EventType = "DeployExpired"
	TypeFault             EventType = "Fault"
	TypeFinalitySignature EventType = "FinalitySignature"
	TypeStep              EventType = "Step"
)

// Types lists every known discriminator, in taxonomy order.
func Types() []EventType {
	return []EventType{
		TypeApiVersion,
		TypeBlockAdded,
		TypeDeployAccepted,
		TypeDeployProcessed,
		TypeDeployExpired,
		TypeFault,
		TypeFinalitySignature,
		TypeStep,
	}
}

// Event is the closed tagged union of everything the sidecar emits. Exactly
// one variant is set; the zero Event is invalid and refused by the encoder.
// Events are immutable once constructed.
type Event struct {
	apiVersion        *ApiVersion
	blockAdded        *BlockAdded
	deployAccepted    *DeployAccepted
	deployProcessed   *DeployProcessed
	deployExpired     *DeployExpired
	fault             *Fault
	finalitySignature *FinalitySignature
	step              *Step
}

// NewApiVersionEvent wraps the session sentinel.
func NewApiVersionEvent(v chain.ProtocolVersion) Event {
	av := NewApiVersion(v)
	return Event{apiVersion: &av}
}

// NewBlockAddedEvent wraps a stored block.
func NewBlockAddedEvent(block chain.Block) Event {
	ba := NewBlockAdded(block)
	return Event{blockAdded: &ba}
}

// NewDeployAcceptedEvent wraps a shared deploy record.
func NewDeployAcceptedEvent(deploy *chain.Deploy) Event {
	da := NewDeployAccepted(deploy)
	return Event{deployAccepted: &da}
}

// NewDeployProcessedEvent wraps a fully populated processing record.
func NewDeployProcessedEvent(dp DeployProcessed) Event {
	return Event{deployProcessed: &dp}
}

// NewDeployExpiredEvent wraps an expired deploy's hash.
func NewDeployExpiredEvent(hash chain.DeployHash) Event {
	de := NewDeployExpired(hash)
	return Event{deployExpired: &de}
}

// NewFaultEvent wraps a validator fault record.
func NewFaultEvent(f Fault) Event {
	return Event{fault: &f}
}

// NewFinalitySignatureEvent wraps a received attestation.
func NewFinalitySignatureEvent(fs chain.FinalitySignature) Event {
	w := NewFinalitySignature(fs)
	return Event{finalitySignature: &w}
}

// NewStepEvent wraps an era-end step record.
func NewStepEvent(s Step) Event {
	return Event{step: &s}
}

// Type returns the event's discriminator, or "" for the invalid zero Event.
func (e Event) Type() EventType {
	switch {
	case e.apiVersion != nil:
		return TypeApiVersion
	case e.blockAdded != nil:
		return TypeBlockAdded
	case e.deployAccepted != nil:
		return TypeDeployAccepted
	case e.deployProcessed != nil:
		return TypeDeployProcessed
	case e.deployExpired != nil:
		return TypeDeployExpired
	case e.fault != nil:
		return TypeFault
	case e.finalitySignature != nil:
		return TypeFinalitySignature
	case e.step != nil:
		return TypeStep
	default:
		return ""
	}
}

// ApiVersion returns the variant payload if this event carries it.
func (e Event) ApiVersion() (ApiVersion, bool) {
	if e.apiVersion == nil {
		return ApiVersion{}, false
	}
	return *e.apiVersion, true
}

// BlockAdded returns the variant payload if this event carries it.
func (e Event) BlockAdded() (BlockAdded, bool) {
	if e.blockAdded == nil {
		return BlockAdded{}, false
	}
	return *e.blockAdded, true
}

// DeployAccepted returns the variant payload if this event carries it.
func (e Event) DeployAccepted() (DeployAccepted, bool) {
	if e.deployAccepted == nil {
		return DeployAccepted{}, false
	}
	return *e.deployAccepted, true
}

// DeployProcessed returns the variant payload if this event carries it.
func (e Event) DeployProcessed() (DeployProcessed, bool) {
	if e.deployProcessed == nil {
		return DeployProcessed{}, false
	}
	return *e.deployProcessed, true
}

// DeployExpired returns the variant payload if this event carries it.
func (e Event) DeployExpired() (DeployExpired, bool) {
	if e.deployExpired == nil {
		return DeployExpired{}, false
	}
	return *e.deployExpired, true
}

// Fault returns the variant payload if this event carries it.
func (e Event) Fault() (Fault, bool) {
	if e.fault == nil {
		return Fault{}, false
	}
	return *e.fault, true
}

// FinalitySignature returns the variant payload if this event carries it.
func (e Event) FinalitySignature() (FinalitySignature, bool) {
	if e.finalitySignature == nil {
		return FinalitySignature{}, false
	}
	return *e.finalitySignature, true
}

// Step returns the variant payload if this event carries it.
func (e Event) Step() (Step, bool) {
	if e.step == nil {
		return Step{}, false
	}
	return *e.step, true
}

// payload marshals whichever variant is set.
func (e Event) payload() (EventType, []byte, error) {
	var (
		v   any
		typ = e.Type()
	)
	switch typ {
	case TypeApiVersion:
		v = e.apiVersion
	case TypeBlockAdded:
		v = e.blockAdded
	case TypeDeployAccepted:
		v = e.deployAccepted
	case TypeDeployProcessed:
		v = e.deployProcessed
	case TypeDeployExpired:
		v = e.deployExpired
	case TypeFault:
		v = e.fault
	case TypeFinalitySignature:
		v = e.finalitySignature
	case TypeStep:
		v = e.step
	default:
		return "", nil, ErrEmptyEvent
	}
	b, err := json.Marshal(v)
	if err != nil {
		// Unreachable for any constructed event; encoding is total.
		return "", nil, fmt.Errorf("sse: encode %s: %w", typ, err)
	}
	return typ, b, nil
}

// MarshalJSON writes the externally tagged wire form: an object with exactly
// one key, the variant discriminator, so unknown future variants can be
// detected and skipped rather than misparsed.
func (e Event) MarshalJSON() ([]byte, error) {
	typ, payload, err := e.payload()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(fmt.Sprintf("%q:", string(typ)))
	buf.Write(payload)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the externally tagged wire form. Records with an
// unrecognized discriminator fail with ErrUnknownVariant; records without
// exactly one key fail with ErrMalformedRecord.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("%w: expected one discriminator key, got %d", ErrMalformedRecord, len(raw))
	}
	for tag, payload := range raw {
		decoded, err := decodePayload(EventType(tag), payload)
		if err != nil {
			return err
		}
		*e = decoded
	}
	return nil
}

func decodePayload(tag EventType, payload json.RawMessage) (Event, error) {
	var (
		target any
		ev     Event
	)
	switch tag {
	case TypeApiVersion:
		v := &ApiVersion{}
		target, ev = v, Event{apiVersion: v}
	case TypeBlockAdded:
		v := &BlockAdded{}
		target, ev = v, Event{blockAdded: v}
	case TypeDeployAccepted:
		v := &DeployAccepted{}
		target, ev = v, Event{deployAccepted: v}
	case TypeDeployProcessed:
		v := &DeployProcessed{}
		target, ev = v, Event{deployProcessed: v}
	case TypeDeployExpired:
		v := &DeployExpired{}
		target, ev = v, Event{deployExpired: v}
	case TypeFault:
		v := &Fault{}
		target, ev = v, Event{fault: v}
	case TypeFinalitySignature:
		v := &FinalitySignature{}
		target, ev = v, Event{finalitySignature: v}
	case TypeStep:
		v := &Step{}
		target, ev = v, Event{step: v}
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return Event{}, fmt.Errorf("sse: decode %s: %w", tag, err)
	}
	return ev, nil
}

// Encode serializes the event to its wire form. It is total for any event
// built through a constructor; a failure here is a programming error.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Canonical returns the RFC 8785 canonical bytes of the wire form. Two calls
// on the same event yield byte-identical output.
func (e Event) Canonical() ([]byte, error) {
	raw, err := e.Encode()
	if err != nil {
		return nil, err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("sse: canonicalize %s: %w", e.Type(), err)
	}
	return canonical, nil
}

// Decode parses one wire record.
func Decode(b []byte) (Event, error) {
	// Syntax errors surface before a custom unmarshaler runs, so classify
	// them here to keep every malformed record under one sentinel.
	if !json.Valid(b) {
		return Event{}, fmt.Errorf("%w: not valid JSON", ErrMalformedRecord)
	}
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
