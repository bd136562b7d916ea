package interfaces

import "context"

// CompletionOptions tunes a single completion request
type CompletionOptions struct {
	// Name labels the request in logs and metrics.
	Name string
	// JSON asks the provider to return a single JSON object.
	JSON bool
}

// Completer defines the text-generation collaborator
type Completer interface {
	// Complete sends prompt as a user message and returns the reply text
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}
