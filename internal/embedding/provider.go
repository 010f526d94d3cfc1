// Package embedding implements the provider clients and the failover
// orchestrator that sits in front of them.
package embedding

import "context"

// Provider embeds one or many texts into fixed-dimension vectors.
type Provider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
