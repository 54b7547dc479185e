package telemetry

import (
	"context"
	"time"

	"github.com/askcampus/askcampus/provider"
)

// instrumentedProvider wraps an LLM provider and records per-call metrics.
type instrumentedProvider struct {
	inner provider.Provider
	tele  *Telemetry
}

// InstrumentProvider returns a provider that records call counts and
// latency for completions and embeddings.
func InstrumentProvider(p provider.Provider, t *Telemetry) provider.Provider {
	return &instrumentedProvider{inner: p, tele: t}
}

func (p *instrumentedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := p.inner.Complete(ctx, prompt)
	p.tele.RecordLLMCall("complete", err, time.Since(start))
	return out, err
}

func (p *instrumentedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	out, err := p.inner.Embed(ctx, texts)
	p.tele.RecordLLMCall("embed", err, time.Since(start))
	return out, err
}
