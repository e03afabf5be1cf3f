package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/ghiac/modelrelay/log"
	"github.com/ghiac/modelrelay/model"
	"github.com/ghiac/modelrelay/provider"
	"github.com/ghiac/modelrelay/reduce"
	"github.com/ghiac/modelrelay/store"
)

// Token source labels for completion accounting.
const (
	tokenSourceReported  = "reported"
	tokenSourceEstimated = "estimated"
)

// Turn is one in-flight chat completion holding its session lock. The
// caller must Close it; until then no other request can mutate the same
// session.
type Turn struct {
	RequestID string
	Key       model.SessionKey
	Session   *model.Session
	Target    provider.Target

	unlock    func()
	closeOnce sync.Once
}

// Close releases the session lock. Safe to call more than once.
func (t *Turn) Close() {
	t.closeOnce.Do(t.unlock)
}

// Begin validates the request, resolves its model and prepares the
// session for dispatch: the incoming transcript is merged, context
// reduction applied when the history overflows its budget, and the
// result persisted before any upstream call.
//
// Model resolution happens before the session is touched, so an
// unresolvable model never mutates stored state. A store read failure
// other than not-found aborts the turn with service_unavailable rather
// than silently starting a fresh conversation.
func (e *Engine) Begin(ctx context.Context, req openai.ChatCompletionRequest) (*Turn, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	target, err := e.router.Resolve(req.Model)
	if err != nil {
		return nil, model.AsAPIError(err)
	}

	key := e.keyFunc(req)
	requestID := uuid.NewString()
	log.Log.APICall(requestID, key.String(), req.Model, req.Stream, len(req.Messages))

	lock := e.locks.Get(key.String())
	lock.Lock()
	turn := &Turn{
		RequestID: requestID,
		Key:       key,
		Target:    target,
		unlock:    lock.Unlock,
	}

	session, err := e.store.Get(ctx, key)
	if errors.Is(err, store.ErrSessionNotFound) {
		session = model.NewSession(key.UserID, key.SessionID)
	} else if err != nil {
		turn.Close()
		return nil, model.NewStoreUnavailableError(err)
	}

	mergeTranscript(session, req.Messages)
	// Sessions reloaded from a JSON-backed store come back with a nil
	// metadata map when it was empty at serialization time.
	if session.Metadata == nil {
		session.Metadata = make(map[string]string)
	}
	session.Metadata["model"] = target.DisplayName

	if reduce.ShouldReduce(session.History, target.Context) {
		before := session.History
		result, err := e.reducer.Apply(ctx, before, target.Context)
		if err != nil {
			turn.Close()
			return nil, model.AsAPIError(err)
		}
		if result.Fallback {
			log.Log.Warnf("summarization failed for session %s, fell back to truncation: %v",
				key, result.FallbackErr)
		}

		session.ReplaceHistory(result.History)
		if result.Summary != "" && target.Context.MemoryZoneEnabled {
			session.AddMemory(result.Summary)
		}
		log.Log.ContextReduction(requestID, key.String(), result.Mode,
			len(before), len(result.History),
			before.EstimatedTokens(), result.History.EstimatedTokens(),
			result.Fallback)
	}

	if err := e.store.Put(ctx, session); err != nil {
		turn.Close()
		return nil, model.NewStoreUnavailableError(err)
	}

	turn.Session = session
	return turn, nil
}

// Complete runs the buffered path for a prepared turn and returns the
// response body to relay, with the model field rewritten back to the
// display name and all other upstream fields preserved.
func (e *Engine) Complete(ctx context.Context, turn *Turn, req openai.ChatCompletionRequest) ([]byte, error) {
	req.Messages = toWireMessages(turn.Session.History)

	resp, err := e.router.Dispatch(ctx, turn.Target, req)
	if err != nil {
		apiErr := model.AsAPIError(err)
		log.Log.ProviderError(turn.RequestID, turn.Key.String(),
			turn.Target.Provider.Name, apiErr.Status, apiErr)
		return nil, apiErr
	}

	e.recordCompletion(ctx, turn, resp)
	return resp.JSON(turn.Target.DisplayName)
}

// recordCompletion appends the assistant reply to the session, accounts
// tokens and persists. Persistence failures after a successful upstream
// call are logged but never fail the response the client is owed.
func (e *Engine) recordCompletion(ctx context.Context, turn *Turn, resp *provider.Response) {
	logResponseShape(turn, resp.View)

	var completion string
	if len(resp.View.Choices) > 0 {
		msg := resp.View.Choices[0].Message
		completion = msg.Text()
		if completion != "" {
			turn.Session.Append(model.NewMessage(model.RoleAssistant, completion))
		}
		if reasoning := msg.Reasoning(); reasoning != "" {
			log.Log.ReasoningDetected(turn.RequestID, turn.Key.String(), len(reasoning))
		}
	}

	usage := resp.View.Usage
	source := tokenSourceReported
	if usage.TotalTokens == 0 {
		source = tokenSourceEstimated
		usage.CompletionTokens = (len(completion) + 3) / 4
		usage.PromptTokens = turn.Session.History.EstimatedTokens() - usage.CompletionTokens
		if usage.PromptTokens < 0 {
			usage.PromptTokens = 0
		}
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	turn.Session.TotalTokensUsed += usage.TotalTokens

	if err := e.store.Put(ctx, turn.Session); err != nil {
		log.Log.Warnf("failed to persist session %s after completion: %v", turn.Key, err)
	}

	log.Log.APICompletion(turn.RequestID, turn.Key.String(),
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, source)
}

// mergeTranscript reconciles the client transcript with stored history
// under the trailing-suffix-append policy: when the stored history is a
// prefix of the incoming messages only the surplus is appended, keeping
// server-side timestamps on messages already seen. A diverged
// transcript replaces the stored one, since the client copy is the one
// the conversation will continue from.
func mergeTranscript(session *model.Session, incoming []openai.ChatCompletionMessage) {
	in := toHistory(incoming)

	if len(session.History) == 0 {
		session.ReplaceHistory(in)
		return
	}
	if session.History.IsPrefixOf(in) {
		if surplus := in[len(session.History):]; len(surplus) > 0 {
			session.Append(surplus...)
		}
		return
	}
	session.ReplaceHistory(in)
}

// validateRequest rejects requests the relay cannot route.
func validateRequest(req openai.ChatCompletionRequest) error {
	if req.Model == "" {
		return model.NewInvalidRequestError("model is required")
	}
	if len(req.Messages) == 0 {
		return model.NewInvalidRequestError("messages must not be empty")
	}
	for i, m := range req.Messages {
		switch m.Role {
		case model.RoleSystem, model.RoleUser, model.RoleAssistant:
		default:
			return model.NewInvalidRequestError(
				fmt.Sprintf("message %d has unsupported role %q", i, m.Role))
		}
	}
	return nil
}
