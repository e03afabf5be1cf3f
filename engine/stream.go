package engine

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ghiac/modelrelay/log"
	"github.com/ghiac/modelrelay/model"
	"github.com/ghiac/modelrelay/provider"
)

// frameBuffer bounds the downstream frame channel so a slow client
// applies backpressure to the upstream read instead of buffering the
// whole stream in memory.
const frameBuffer = 16

// persistTimeout bounds the final session write after a stream ends.
// The write runs on a background context because the request context
// may already be winding down.
const persistTimeout = 5 * time.Second

// StreamFrame is one SSE data payload for the downstream client. Err is
// set on the terminal frame of a failed stream; its Data already holds
// the rendered error envelope.
type StreamFrame struct {
	Data []byte
	Err  *model.APIError
}

// Stream runs the streaming path for a prepared turn. Upstream chunks
// are re-emitted byte-for-byte on the returned channel while the engine
// accumulates content and reasoning deltas on the side; when the stream
// ends cleanly the assembled assistant message is appended to the
// session and persisted. The channel closes after the last frame; the
// caller emits the [DONE] sentinel.
//
// Ownership of the turn passes to the stream: its lock is released when
// the pump finishes.
func (e *Engine) Stream(ctx context.Context, turn *Turn, req openai.ChatCompletionRequest) (<-chan StreamFrame, error) {
	req.Messages = toWireMessages(turn.Session.History)

	upstream, err := e.router.StreamDispatch(ctx, turn.Target, req)
	if err != nil {
		apiErr := model.AsAPIError(err)
		log.Log.ProviderError(turn.RequestID, turn.Key.String(),
			turn.Target.Provider.Name, apiErr.Status, apiErr)
		return nil, apiErr
	}

	frames := make(chan StreamFrame, frameBuffer)
	go e.pump(ctx, turn, upstream, frames)
	return frames, nil
}

// pump moves upstream events to the downstream channel and accumulates
// the assistant reply.
func (e *Engine) pump(ctx context.Context, turn *Turn, upstream *provider.Stream, frames chan<- StreamFrame) {
	defer turn.Close()
	defer close(frames)
	defer upstream.Close()

	var content, reasoning strings.Builder
	failed := false

	for ev := range upstream.Events() {
		if ev.Err != nil {
			apiErr := model.AsAPIError(ev.Err)
			log.Log.ProviderError(turn.RequestID, turn.Key.String(),
				turn.Target.Provider.Name, apiErr.Status, apiErr)
			payload, _ := json.Marshal(apiErr.Envelope())
			sendFrame(ctx, frames, StreamFrame{Data: payload, Err: apiErr})
			failed = true
			break
		}

		for _, choice := range ev.Chunk.Choices {
			content.WriteString(choice.Delta.Content)
			reasoning.WriteString(choice.Delta.Reasoning())
		}

		if !sendFrame(ctx, frames, StreamFrame{Data: ev.Raw}) {
			return
		}
	}

	if ctx.Err() != nil {
		// Client gone mid-stream: the partial turn is abandoned, the
		// session keeps its pre-dispatch state.
		log.Log.Debugf("stream for session %s abandoned by client", turn.Key)
		return
	}
	if failed {
		return
	}

	e.finishStream(turn, content.String(), reasoning.String())
}

// finishStream appends the accumulated assistant message and persists
// the session. A response that carried only reasoning deltas stores the
// reasoning text so the turn is not lost.
func (e *Engine) finishStream(turn *Turn, content, reasoning string) {
	if reasoning != "" {
		log.Log.ReasoningDetected(turn.RequestID, turn.Key.String(), len(reasoning))
	}

	text := content
	if text == "" {
		text = reasoning
	}
	if text != "" {
		turn.Session.Append(model.NewMessage(model.RoleAssistant, text))
	}

	// Streaming responses rarely carry usage, so accounting is estimated.
	promptTokens := turn.Session.History.EstimatedTokens() - (len(text)+3)/4
	if promptTokens < 0 {
		promptTokens = 0
	}
	completionTokens := (len(text) + 3) / 4
	totalTokens := promptTokens + completionTokens
	turn.Session.TotalTokensUsed += totalTokens

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.store.Put(ctx, turn.Session); err != nil {
		log.Log.Warnf("failed to persist session %s after stream: %v", turn.Key, err)
	}

	log.Log.APICompletion(turn.RequestID, turn.Key.String(),
		promptTokens, completionTokens, totalTokens, tokenSourceEstimated)
}

// sendFrame delivers a frame unless the client has gone away.
func sendFrame(ctx context.Context, frames chan<- StreamFrame, f StreamFrame) bool {
	select {
	case frames <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
