package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/ghiac/modelrelay/model"
)

// SSE framing constants.
const (
	ssePrefix   = "data:"
	sseDone     = "[DONE]"
	maxSSELine  = 1 << 20 // 1 MiB
	eventBuffer = 16
)

// ChunkView is the parsed slice of one streaming chunk the relay
// accumulates from. The raw bytes travel alongside in StreamEvent so
// re-emission stays bit-for-bit.
type ChunkView struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []StreamChoiceView `json:"choices"`
}

// StreamChoiceView is one choice of a streaming chunk.
type StreamChoiceView struct {
	Index        int       `json:"index"`
	Delta        DeltaView `json:"delta"`
	FinishReason string    `json:"finish_reason"`
}

// DeltaView exposes the delta fields the relay reads. Providers may
// send additional fields; those are preserved in the raw payload.
type DeltaView struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content"`
	Thinking         string `json:"thinking"`
}

// Reasoning returns whichever reasoning channel the chunk used.
func (d DeltaView) Reasoning() string {
	if d.ReasoningContent != "" {
		return d.ReasoningContent
	}
	return d.Thinking
}

// StreamEvent is one upstream SSE payload: the verbatim JSON bytes, a
// parsed view, or a terminal error.
type StreamEvent struct {
	Raw   []byte
	Chunk *ChunkView
	Err   error
}

// Stream is a live upstream SSE stream. Events are delivered in
// upstream order on a bounded channel that closes after [DONE],
// upstream EOF, or an error event.
type Stream struct {
	events    chan StreamEvent
	body      io.Closer
	closeOnce sync.Once
	done      chan struct{}
}

// Events returns the event channel.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Close aborts the stream by closing the upstream body, which unblocks
// the reader. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { s.body.Close() })
}

// StreamDispatch performs a streaming chat completion call. The
// returned stream ends on the upstream [DONE] sentinel, upstream
// close, context cancellation, or error; the caller must drain it or
// call Close.
func (r *Router) StreamDispatch(ctx context.Context, target Target, req openai.ChatCompletionRequest) (*Stream, error) {
	req.Model = target.Model
	req.Stream = true

	resp, err := r.post(ctx, target, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		err := upstreamStatusError(target.Provider, resp)
		resp.Body.Close()
		return nil, err
	}

	s := &Stream{
		events: make(chan StreamEvent, eventBuffer),
		body:   resp.Body,
		done:   make(chan struct{}),
	}

	// Cancellation flows into the blocking read by closing the body.
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	go s.read(ctx, target, resp.Body)

	return s, nil
}

// read parses the upstream body line by line and posts typed events.
func (s *Stream) read(ctx context.Context, target Target, body io.Reader) {
	defer close(s.events)
	defer close(s.done)
	defer s.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxSSELine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, ssePrefix) {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, ssePrefix))
		if payload == sseDone {
			return
		}

		chunk := &ChunkView{}
		if err := json.Unmarshal([]byte(payload), chunk); err != nil {
			s.emit(ctx, StreamEvent{Err: model.NewInvalidResponseError(target.Provider.Name, err)})
			return
		}

		if !s.emit(ctx, StreamEvent{Raw: []byte(payload), Chunk: chunk}) {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.emit(ctx, StreamEvent{Err: translateTransportError(target.Provider, err)})
	}
}

// emit delivers an event unless the consumer has gone away.
func (s *Stream) emit(ctx context.Context, ev StreamEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
