package rag

import "fmt"

// Error kinds are stable strings the presentation layer keys on; changing one
// is a breaking API change.
const (
	KindInvalidInput          = "invalid_input"
	KindEmbeddingUnavailable  = "embedding_unavailable"
	KindStoreUnavailable      = "store_unavailable"
	KindGenerationUnavailable = "generation_unavailable"
	KindUpstreamUnavailable   = "upstream_unavailable"
	KindInternal              = "internal"
)

// Error is a query failure with a stable machine-readable kind.
type Error struct {
	Kind    string
	Message string
	err     error
}

func newError(kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}
