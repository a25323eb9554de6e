// Package gemini adapts Google's generative-ai-go client to the
// backend.Backend and backend.Embedder interfaces.
//
// Grounded on the teacher's internal/gemini/client.go: same client
// construction, same context-enforced timeout, same JSON-in/JSON-out
// request shape, generalized from subtitle context_before/target/
// context_after segments to slide paragraph segments, and extended
// with BatchEmbedContents for the semantic run-aligner (spec §4.5.a).
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deckforge/deckforge/internal/apperrors"
	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/httpclient"
)

// Client wraps a genai.Client configured for translation and, when an
// embedding model is supplied, for span-similarity scoring.
type Client struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	embedding *genai.EmbeddingModel
}

var (
	_ backend.Backend  = (*Client)(nil)
	_ backend.Embedder = (*Client)(nil)
)

// Config selects the generation and (optionally) embedding model names.
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string // empty disables Embed
}

// NewClient builds a Gemini-backed translator/embedder.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	// option.WithHTTPClient is avoided deliberately: it interferes with
	// genai's internal API-key header injection and causes 403s. Call
	// timeouts are instead enforced via context in Translate/Embed.
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, apperrors.New(apperrors.KindAuth, "failed to initialize Gemini client.", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"

	c := &Client{client: client, model: model}
	if cfg.EmbeddingModel != "" {
		c.embedding = client.EmbeddingModel(cfg.EmbeddingModel)
	}
	return c, nil
}

// Close releases the underlying genai client.
func (c *Client) Close() error {
	return c.client.Close()
}

// SetSystemInstruction sets the model's system prompt.
func (c *Client) SetSystemInstruction(prompt string) {
	c.model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt)},
	}
}

type wireSegment struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type wireRequest struct {
	ContextBefore []wireSegment `json:"context_before"`
	Target        []wireSegment `json:"target"`
	ContextAfter  []wireSegment `json:"context_after"`
	SourceLang    string        `json:"source_lang,omitempty"`
	TargetLang    string        `json:"target_lang,omitempty"`
	GlossaryHint  string        `json:"glossary_hint,omitempty"`
	SlideContext  string        `json:"slide_context,omitempty"`
}

type wireTranslated struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type wireResponse struct {
	Translations []wireTranslated `json:"translations"`
}

func toWireSegments(in []backend.Segment) []wireSegment {
	out := make([]wireSegment, len(in))
	for i, s := range in {
		out[i] = wireSegment{ID: s.ID, Text: s.Text}
	}
	return out
}

// Translate sends one batch of segments and parses the JSON response.
func (c *Client) Translate(ctx context.Context, req backend.TranslateRequest) (*backend.TranslateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	wire := wireRequest{
		ContextBefore: toWireSegments(req.ContextBefore),
		Target:        toWireSegments(req.Target),
		ContextAfter:  toWireSegments(req.ContextAfter),
		SourceLang:    req.SourceLang,
		TargetLang:    req.TargetLang,
		GlossaryHint:  req.GlossaryHint,
		SlideContext:  req.SlideContext,
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshaling gemini request: %w", err)
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(string(payload)))
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text, err := extractResponseText(resp)
	if err != nil {
		return nil, apperrors.Validation(err)
	}

	var parsed wireResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		var bare []wireTranslated
		if err2 := json.Unmarshal([]byte(text), &bare); err2 != nil {
			return nil, apperrors.Validation(fmt.Errorf("unmarshaling gemini response: %w", err))
		}
		parsed.Translations = bare
	}

	out := &backend.TranslateResponse{
		Translations: make([]backend.TranslatedSegment, len(parsed.Translations)),
	}
	for i, t := range parsed.Translations {
		out.Translations[i] = backend.TranslatedSegment{ID: t.ID, Text: t.Text}
	}
	if resp.UsageMetadata != nil {
		out.Usage = backend.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// Embed returns one embedding vector per input text, batched through
// genai's BatchEmbedContents. Returns apperrors.KindBadRequest if no
// embedding model was configured.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.embedding == nil {
		return nil, apperrors.New(apperrors.KindBadRequest, "no embedding model configured for this backend.", fmt.Errorf("embedding disabled"))
	}
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	batch := c.embedding.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	resp, err := c.embedding.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			continue
		}
		out[i] = e.Values
	}
	return out, nil
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		var combined string
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				combined += string(text)
			}
		}
		if combined != "" {
			return combined, nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
