// Package oracle implements the evaluation, generation and validation calls on
// top of an LLM client. Every response is schema-checked before decoding.
package oracle

import "fmt"

// DecodeError reports an oracle response that did not match its contract.
type DecodeError struct {
	Call  string
	Raw   string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Call, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// CallError reports a failed LLM call.
type CallError struct {
	Call  string
	Cause error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Call, e.Cause)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}
