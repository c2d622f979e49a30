package chain

import "fmt"

// OpKind classifies a global-state operation recorded during execution.
type OpKind string

const (
	OpRead  OpKind = "Read"
	OpWrite OpKind = "Write"
	OpAdd   OpKind = "Add"
	OpNoOp  OpKind = "NoOp"
)

// Operation records an access to a global-state key.
type Operation struct {
	Key  string `json:"key"`
	Kind OpKind `json:"kind"`
}

// TransformKind names the state change applied to a key.
type TransformKind string

const (
	TransformIdentity     TransformKind = "identity"
	TransformWriteBytes   TransformKind = "write_bytes"
	TransformWriteAccount TransformKind = "write_account"
	TransformAddUInt64    TransformKind = "add_uint64"
)

// Transform is one state change. Value is set for add_* kinds, Data for
// write_* kinds; identity carries neither.
type Transform struct {
	Kind  TransformKind `json:"kind"`
	Value uint64        `json:"value,omitempty"`
	Data  HexBytes      `json:"data,omitempty"`
}

// TransformEntry pairs a global-state key with its transform.
type TransformEntry struct {
	Key       string    `json:"key"`
	Transform Transform `json:"transform"`
}

// ExecutionEffect is the set of state changes produced by executing a deploy
// or an era-end step.
type ExecutionEffect struct {
	Operations []Operation      `json:"operations"`
	Transforms []TransformEntry `json:"transforms"`
}

// ExecutionOutcome is the shared body of a success or failure result.
type ExecutionOutcome struct {
	Effect    ExecutionEffect `json:"effect"`
	Transfers []string        `json:"transfers"`
	Cost      uint64          `json:"cost"`
}

// ExecutionFailure extends the outcome with the failure message.
type ExecutionFailure struct {
	ExecutionOutcome
	ErrorMessage string `json:"error_message"`
}

// ExecutionResult is the committed result of executing a deploy: exactly one
// of Success or Failure is set, and the set arm names itself on the wire.
type ExecutionResult struct {
	Success *ExecutionOutcome `json:"Success,omitempty"`
	Failure *ExecutionFailure `json:"Failure,omitempty"`
}

// SuccessResult wraps a successful outcome.
func SuccessResult(outcome ExecutionOutcome) ExecutionResult {
	return ExecutionResult{Success: &outcome}
}

// FailureResult wraps a failed outcome.
func FailureResult(outcome ExecutionOutcome, errorMessage string) ExecutionResult {
	return ExecutionResult{Failure: &ExecutionFailure{ExecutionOutcome: outcome, ErrorMessage: errorMessage}}
}

// Effect returns the effect of whichever arm is set.
func (r ExecutionResult) Effect() ExecutionEffect {
	switch {
	case r.Success != nil:
		return r.Success.Effect
	case r.Failure != nil:
		return r.Failure.Effect
	default:
		return ExecutionEffect{}
	}
}

// Validate checks that exactly one arm is set.
func (r ExecutionResult) Validate() error {
	if (r.Success == nil) == (r.Failure == nil) {
		return fmt.Errorf("execution result must set exactly one of Success or Failure")
	}
	return nil
}
