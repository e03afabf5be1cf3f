package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/model"
)

// maxDiagnosticLen bounds how much of an upstream error body ends up
// in error messages and logs.
const maxDiagnosticLen = 2000

// ChatCompletionView is the typed slice of a buffered completion the
// relay itself needs: choices for the session append and usage for
// accounting. The raw body is kept alongside so unknown upstream
// fields survive re-emission.
type ChatCompletionView struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChoiceView `json:"choices"`
	Usage   UsageView    `json:"usage"`
}

// ChoiceView is one buffered completion choice.
type ChoiceView struct {
	Index        int         `json:"index"`
	Message      MessageView `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// MessageView carries the assistant message including the auxiliary
// reasoning channels emitted by chain-of-thought models.
type MessageView struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content"`
	Thinking         string `json:"thinking"`
}

// Text returns the message content, falling back to the reasoning
// channels when the content is empty.
func (m MessageView) Text() string {
	if m.Content != "" {
		return m.Content
	}
	return m.Reasoning()
}

// Reasoning returns whichever reasoning channel the provider used.
func (m MessageView) Reasoning() string {
	if m.ReasoningContent != "" {
		return m.ReasoningContent
	}
	return m.Thinking
}

// UsageView is the upstream token accounting.
type UsageView struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a buffered upstream completion. The top level is kept as
// raw JSON fields so the body can be re-emitted byte-preserving except
// for the rewritten model field.
type Response struct {
	StatusCode int
	View       ChatCompletionView

	fields map[string]json.RawMessage
}

// JSON renders the response body with the model field rewritten to the
// given display name. All other fields are emitted exactly as the
// provider sent them.
func (r *Response) JSON(displayModel string) ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(r.fields))
	for k, v := range r.fields {
		fields[k] = v
	}

	name, err := json.Marshal(displayModel)
	if err != nil {
		return nil, err
	}
	fields["model"] = name

	return json.Marshal(fields)
}

// Dispatch performs a buffered chat completion call against the
// target. The caller's request is forwarded with the model field
// rewritten to the upstream name; the provider timeout bounds the
// whole exchange.
func (r *Router) Dispatch(ctx context.Context, target Target, req openai.ChatCompletionRequest) (*Response, error) {
	req.Model = target.Model
	req.Stream = false

	ctx, cancel := context.WithTimeout(ctx, target.Provider.TimeoutDuration())
	defer cancel()

	resp, err := r.post(ctx, target, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, upstreamStatusError(target.Provider, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, translateTransportError(target.Provider, err)
	}

	out := &Response{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, &out.fields); err != nil {
		return nil, model.NewInvalidResponseError(target.Provider.Name, err)
	}
	if err := json.Unmarshal(body, &out.View); err != nil {
		return nil, model.NewInvalidResponseError(target.Provider.Name, err)
	}
	return out, nil
}

// post sends the JSON request to {baseURL}/chat/completions with the
// provider's bearer credentials.
func (r *Router) post(ctx context.Context, target Target, req openai.ChatCompletionRequest) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, model.NewInternalError(fmt.Errorf("failed to encode upstream request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		target.Provider.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+target.Provider.APIKey)

	resp, err := r.client(target.Provider).Do(httpReq)
	if err != nil {
		return nil, translateTransportError(target.Provider, err)
	}
	return resp, nil
}

// upstreamStatusError reads a short diagnostic from an error response
// and closes it into the provider error taxonomy.
func upstreamStatusError(p *config.Provider, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticLen+1))
	diag := strings.TrimSpace(string(body))
	if len(diag) > maxDiagnosticLen {
		diag = diag[:maxDiagnosticLen] + " [TRUNCATED]"
	}
	return model.NewProviderError(p.Name, resp.StatusCode, diag)
}

// translateTransportError maps network failures onto the relay's error
// taxonomy: deadline and timeout failures surface as timeout_error,
// anything else as a connection failure.
func translateTransportError(p *config.Provider, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewUpstreamTimeoutError(p.Name)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.NewUpstreamTimeoutError(p.Name)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return model.NewConnectionError(p.Name, err)
}
