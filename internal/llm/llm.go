// Package llm abstracts the text-generation and classification backend.
//
// The server never depends on a concrete model: generation is an opaque
// token stream and classification an opaque structured call. The bundled
// implementation speaks to any OpenAI-compatible endpoint, which includes
// a local Ollama instance via its /v1 API.
package llm

import (
	"context"
	"errors"
	"iter"
)

// ErrEmptyResponse is returned when the backend answers with no usable text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Generator streams a reply for a fully built dialogue prompt.
type Generator interface {
	// Generate yields text fragments as they arrive. A transport failure
	// terminates the sequence with a non-nil error; fragments already
	// yielded remain valid.
	Generate(ctx context.Context, system, prompt string) iter.Seq2[string, error]
}

// Completer performs short non-streaming auxiliary calls.
type Completer interface {
	// Complete returns the full text of a single response.
	Complete(ctx context.Context, instructions, input string) (string, error)

	// CompleteJSON forces the backend to answer in the given JSON schema
	// and unmarshals the result into out.
	CompleteJSON(ctx context.Context, instructions, input, schemaName string, schema map[string]any, out any) error
}

// Backend combines the two capabilities a full deployment needs.
type Backend interface {
	Generator
	Completer
}
