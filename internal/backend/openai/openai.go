// Package openai adapts the OpenAI Responses API to backend.Backend.
//
// Grounded on the teacher's internal/openai/client.go: same raw
// net/http client via internal/httpclient, same error classification
// by status code, generalized to slide paragraph segments. OpenAI's
// Responses API has no bundled embedding endpoint here, so this
// backend deliberately does not implement backend.Embedder (spec
// §4.5.a requires the aligner to type-assert for that capability).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/deckforge/deckforge/internal/apperrors"
	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/httpclient"
)

type wireSegment struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type wireRequest struct {
	Model         string        `json:"model"`
	ContextBefore []wireSegment `json:"context_before,omitempty"`
	Target        []wireSegment `json:"target"`
	ContextAfter  []wireSegment `json:"context_after,omitempty"`
	Instructions  string        `json:"instructions,omitempty"`
	Input         []inputItem   `json:"input"`
	Text          *textOptions  `json:"text,omitempty"`
}

type inputItem struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type textOptions struct {
	Format *responseFormat `json:"format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type wireTranslated struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type wireOutputPayload struct {
	Translations []wireTranslated `json:"translations"`
}

type outputItem struct {
	Type    string            `json:"type"`
	Role    string            `json:"role,omitempty"`
	Content []outputContent   `json:"content,omitempty"`
}

type outputContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type responseEnvelope struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Output []outputItem `json:"output"`
	Usage  usage        `json:"usage"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type errorEnvelope struct {
	Error errorDetails `json:"error"`
}

type errorDetails struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e errorDetails) codeString() string {
	if e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}

// Client talks to OpenAI's Responses API.
type Client struct {
	apiKey        string
	model         string
	baseURL       string
	systemPrompt  string
}

var _ backend.Backend = (*Client)(nil)

// NewClient builds an OpenAI-backed translator.
func NewClient(apiKey, model string) *Client {
	return &Client{apiKey: apiKey, model: model, baseURL: "https://api.openai.com/v1"}
}

// SetSystemInstruction stores the prompt sent as the leading system message.
func (c *Client) SetSystemInstruction(prompt string) {
	c.systemPrompt = prompt
}

// Translate posts one request to /responses and decodes the JSON payload.
func (c *Client) Translate(ctx context.Context, req backend.TranslateRequest) (*backend.TranslateResponse, error) {
	body := strings.Builder{}
	body.WriteString(c.systemPrompt)
	if req.SlideContext != "" {
		body.WriteString("\n\nSlide context:\n" + req.SlideContext)
	}
	if req.GlossaryHint != "" {
		body.WriteString("\n\n" + req.GlossaryHint)
	}

	payload := struct {
		ContextBefore []wireSegment `json:"context_before,omitempty"`
		Target        []wireSegment `json:"target"`
		ContextAfter  []wireSegment `json:"context_after,omitempty"`
	}{
		ContextBefore: toWireSegments(req.ContextBefore),
		Target:        toWireSegments(req.Target),
		ContextAfter:  toWireSegments(req.ContextAfter),
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling openai payload: %w", err)
	}
	body.WriteString("\n\n" + string(payloadJSON))

	wire := wireRequest{
		Model:        c.model,
		Instructions: c.systemPrompt,
		Input: []inputItem{
			{Type: "message", Role: "user", Content: body.String()},
		},
		Text: &textOptions{Format: &responseFormat{Type: "json_object"}},
	}

	jsonData, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshaling openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	respBody, resp, err := httpclient.DoAndRead(httpclient.GetDefaultClient(), httpReq)
	if err != nil {
		return nil, apperrors.New(apperrors.KindTransient, "OpenAI request failed due to a temporary network/runtime error.", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyOpenAIError(resp.StatusCode, resp.Status, parseErrorDetails(respBody))
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, apperrors.Validation(fmt.Errorf("decoding openai response: %w", err))
	}

	text, err := extractOutputText(envelope)
	if err != nil {
		return nil, apperrors.Validation(err)
	}
	var out wireOutputPayload
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, apperrors.Validation(fmt.Errorf("unmarshaling openai translations: %w", err))
	}

	result := &backend.TranslateResponse{
		Translations: make([]backend.TranslatedSegment, len(out.Translations)),
		Usage: backend.Usage{
			PromptTokens:     envelope.Usage.InputTokens,
			CompletionTokens: envelope.Usage.OutputTokens,
			TotalTokens:      envelope.Usage.TotalTokens,
		},
	}
	for i, t := range out.Translations {
		result.Translations[i] = backend.TranslatedSegment{ID: t.ID, Text: t.Text}
	}
	return result, nil
}

func toWireSegments(in []backend.Segment) []wireSegment {
	out := make([]wireSegment, len(in))
	for i, s := range in {
		out[i] = wireSegment{ID: s.ID, Text: s.Text}
	}
	return out
}

func extractOutputText(envelope responseEnvelope) (string, error) {
	for _, item := range envelope.Output {
		for _, c := range item.Content {
			if c.Text != "" {
				return c.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no text content in OpenAI response")
}

func parseErrorDetails(body []byte) errorDetails {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errorDetails{}
	}
	return envelope.Error
}

func classifyOpenAIError(statusCode int, status string, details errorDetails) error {
	cause := fmt.Errorf("openai status=%s type=%s code=%s message=%s", status, details.Type, details.codeString(), details.Message)
	switch statusCode {
	case http.StatusTooManyRequests:
		return apperrors.New(apperrors.KindRateLimit, "OpenAI API rate limit exceeded (429).", cause)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(apperrors.KindAuth, fmt.Sprintf("OpenAI authentication/authorization failed (%d).", statusCode), cause)
	case http.StatusNotFound:
		return apperrors.New(apperrors.KindBadRequest, "OpenAI resource not found (404).", cause)
	default:
		if statusCode >= 500 {
			return apperrors.New(apperrors.KindTransient, fmt.Sprintf("OpenAI server error (%d).", statusCode), cause)
		}
		return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("OpenAI API error (%d): %s", statusCode, status), cause)
	}
}
