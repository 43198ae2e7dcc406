package manager

import (
	"agentcore/internal/faults"
	"agentcore/pkg/types"
)

// Input is the payload of an execution: TextInput, BinaryInput or UnsupportedInput.
type Input interface {
	Kind() string
	isInput()
}

// TextInput is a prompt. It runs on either route.
type TextInput struct {
	Text string
}

// BinaryInput is raw data such as an image. It runs on the local engine only.
type BinaryInput struct {
	Data []byte
	// Modality narrows the data kind; empty means types.ModalityBinary.
	Modality types.Modality
}

// UnsupportedInput stands for any payload the core cannot execute.
type UnsupportedInput struct {
	Type string
}

func (TextInput) isInput()        {}
func (BinaryInput) isInput()      {}
func (UnsupportedInput) isInput() {}

func (TextInput) Kind() string          { return "text" }
func (BinaryInput) Kind() string        { return "binary" }
func (u UnsupportedInput) Kind() string { return u.Type }

func (b BinaryInput) modality() types.Modality {
	if b.Modality == "" {
		return types.ModalityBinary
	}
	return b.Modality
}

// Output is a successful execution or load.
type Output struct {
	Text        string
	Data        []byte
	Route       string
	ModelID     string
	ExecutionID string
	Cost        float64
}

// Result is either an Output or a classified failure in Err.
type Result struct {
	Output Output
	Err    error

	load bool
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Message renders the result as text. Failures become a short human-readable
// line so callers can always display a string.
func (r Result) Message() string {
	if r.Err == nil {
		return r.Output.Text
	}
	switch {
	case r.load:
		return "Failed to load model: " + r.Err.Error()
	case faults.Is(r.Err, faults.KindUnsupportedInputType):
		return "Unsupported input type"
	default:
		return "Error processing request: " + r.Err.Error()
	}
}
