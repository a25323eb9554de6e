// Package mock provides a scriptable backend.Backend/backend.Embedder
// for tests, grounded on the teacher's internal/gemini.MockClient.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/deckforge/deckforge/internal/backend"
)

// Client echoes back canned translations or, absent a script, the
// source text with a configurable prefix/suffix so tests can assert
// exact round-trip formatting without guessing provider behavior.
type Client struct {
	// Translations, when set, maps segment ID to its translated text.
	Translations map[int]string
	// Prefix/Suffix wrap the source text when Translations has no entry.
	Prefix, Suffix string
	// EmbedFunc, when set, backs Embed. Absent EmbedFunc, Embed returns
	// a deterministic hash-based vector per text.
	EmbedFunc func(texts []string) [][]float32
	// Delay, when non-zero, makes Translate block for that long (or
	// until ctx is cancelled) before responding, for cancellation-
	// liveness tests against a per-job worker pool.
	Delay time.Duration

	Err error

	mu                     sync.Mutex
	LastSystemInstruction  string
	Calls                  int
}

var (
	_ backend.Backend  = (*Client)(nil)
	_ backend.Embedder = (*Client)(nil)
)

func (c *Client) SetSystemInstruction(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastSystemInstruction = prompt
}

func (c *Client) Translate(ctx context.Context, req backend.TranslateRequest) (*backend.TranslateResponse, error) {
	c.mu.Lock()
	c.Calls++
	c.mu.Unlock()

	if c.Delay > 0 {
		timer := time.NewTimer(c.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if c.Err != nil {
		return nil, c.Err
	}
	out := make([]backend.TranslatedSegment, len(req.Target))
	for i, seg := range req.Target {
		if text, ok := c.Translations[seg.ID]; ok {
			out[i] = backend.TranslatedSegment{ID: seg.ID, Text: text}
			continue
		}
		out[i] = backend.TranslatedSegment{ID: seg.ID, Text: c.Prefix + seg.Text + c.Suffix}
	}
	return &backend.TranslateResponse{Translations: out}, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if c.EmbedFunc != nil {
		return c.EmbedFunc(texts), nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

// hashVector derives a small deterministic vector from text so tests
// can exercise cosine-similarity scoring without a real model: equal
// texts hash to equal vectors, and the scheme is sensitive enough to
// shared substrings to make ranking tests meaningful.
func hashVector(text string) []float32 {
	const dims = 8
	v := make([]float32, dims)
	for i, r := range text {
		v[i%dims] += float32(r%97) / 97.0
	}
	return v
}
