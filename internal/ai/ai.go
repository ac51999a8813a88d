package ai

import "context"

// Generator is the minimal contract the matching engine needs from a
// text-generation backend: free-form prompt in, free-form text out.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}
