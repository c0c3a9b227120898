package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
)

// The free image endpoints have no request/response cycle at all: the
// generated artifact is addressed by URL, so these clients synthesize a
// deterministic URL from the prompt and return it as the "output" text.

// PollinationsPrompt produces a Pollinations render URL seeded from the
// prompt.
type PollinationsPrompt struct{}

func NewPollinationsPrompt() *PollinationsPrompt { return &PollinationsPrompt{} }

func (p *PollinationsPrompt) Name() string { return "pollinations" }

func (p *PollinationsPrompt) Generate(_ context.Context, prompt string, _ float64) (string, error) {
	return fmt.Sprintf("https://image.pollinations.ai/prompt/%s?width=1024&height=1024&seed=%d",
		url.QueryEscape(prompt), promptSeed(prompt, 10000)), nil
}

// PicsumPrompt produces a seeded picsum.photos URL.
type PicsumPrompt struct{}

func NewPicsumPrompt() *PicsumPrompt { return &PicsumPrompt{} }

func (p *PicsumPrompt) Name() string { return "picsum" }

func (p *PicsumPrompt) Generate(_ context.Context, prompt string, _ float64) (string, error) {
	return fmt.Sprintf("https://picsum.photos/seed/%d/1024/1024", promptSeed(prompt, 1000)), nil
}

func promptSeed(prompt string, mod uint32) uint32 {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	return h.Sum32() % mod
}
