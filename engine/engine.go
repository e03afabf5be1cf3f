// Package engine orchestrates one chat completion turn: it keys the
// request to a session, merges the incoming transcript, applies context
// reduction, dispatches upstream and persists the outcome.
package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/model"
	"github.com/ghiac/modelrelay/provider"
	"github.com/ghiac/modelrelay/reduce"
	"github.com/ghiac/modelrelay/store"
)

// SessionPolicy names the transcript merge policy in effect. Reported
// by the health endpoint so clients know how resent transcripts are
// treated.
const SessionPolicy = "trailing_suffix_append"

// healthPingTimeout bounds the store reachability probe.
const healthPingTimeout = 2 * time.Second

// KeyFunc derives the session key for a request. Swappable so library
// embedders can key sessions off headers or auth instead of the OpenAI
// user field.
type KeyFunc func(req openai.ChatCompletionRequest) model.SessionKey

// DefaultKeyFunc keys sessions by the request's user field, falling
// back to "default" for anonymous callers. The session id is a stable
// hash of the user id so the same caller always lands on the same
// conversation.
func DefaultKeyFunc(req openai.ChatCompletionRequest) model.SessionKey {
	userID := req.User
	if userID == "" {
		userID = "default"
	}
	h := fnv.New32a()
	h.Write([]byte(userID))
	return model.SessionKey{
		UserID:    userID,
		SessionID: fmt.Sprintf("session_%d", h.Sum32()%10000),
	}
}

// Engine ties the session store, the provider router and the reduction
// engine together. Safe for concurrent use; per-session work is
// serialized by keyed locks.
type Engine struct {
	cfg     *config.Config
	store   store.SessionStore
	router  *provider.Router
	reducer *reduce.Engine
	locks   *model.KeyedLocks
	keyFunc KeyFunc
}

// New builds the orchestrator. The reduction engine summarizes through
// the same router the relay dispatches with, so summarization models
// use the ordinary display-name resolution.
func New(cfg *config.Config, st store.SessionStore, router *provider.Router) *Engine {
	e := &Engine{
		cfg:     cfg,
		store:   st,
		router:  router,
		locks:   model.NewKeyedLocks(),
		keyFunc: DefaultKeyFunc,
	}
	e.reducer = reduce.New(&routerSummarizer{router: router})
	return e
}

// SetKeyFunc replaces the session keying strategy. Must be called
// before the engine starts serving requests.
func (e *Engine) SetKeyFunc(fn KeyFunc) {
	if fn != nil {
		e.keyFunc = fn
	}
}

// Store exposes the session store for the admin and debug surfaces.
func (e *Engine) Store() store.SessionStore {
	return e.store
}

// Config exposes the loaded configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Models lists the configured model mappings in OpenAI list shape.
func (e *Engine) Models() provider.ModelList {
	return e.router.ListModels()
}

// Health is the health endpoint payload.
type Health struct {
	Status                 string `json:"status"`
	Storage                string `json:"storage"`
	SessionPolicy          string `json:"session_policy"`
	ExternalStoreReachable *bool  `json:"external_store_reachable,omitempty"`
}

// CheckHealth probes the session store. Memory storage has no external
// dependency; any other backend is pinged with a short deadline and an
// unreachable store degrades the reported status.
func (e *Engine) CheckHealth(ctx context.Context) Health {
	h := Health{
		Status:        "healthy",
		Storage:       e.cfg.Storage.Type,
		SessionPolicy: SessionPolicy,
	}

	if e.cfg.Storage.Type == config.StorageMemory {
		return h
	}

	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	reachable := e.store.Ping(ctx) == nil
	h.ExternalStoreReachable = &reachable
	if !reachable {
		h.Status = "degraded"
	}
	return h
}

// routerSummarizer adapts the provider router to the narrow completion
// interface the reduction engine summarizes through.
type routerSummarizer struct {
	router *provider.Router
}

func (s *routerSummarizer) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	target, err := s.router.Resolve(req.Model)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	resp, err := s.router.Dispatch(ctx, target, req)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	out := openai.ChatCompletionResponse{
		ID:    resp.View.ID,
		Model: resp.View.Model,
		Usage: openai.Usage{
			PromptTokens:     resp.View.Usage.PromptTokens,
			CompletionTokens: resp.View.Usage.CompletionTokens,
			TotalTokens:      resp.View.Usage.TotalTokens,
		},
	}
	for _, c := range resp.View.Choices {
		out.Choices = append(out.Choices, openai.ChatCompletionChoice{
			Index: c.Index,
			Message: openai.ChatCompletionMessage{
				Role:    c.Message.Role,
				Content: c.Message.Content,
			},
		})
	}
	return out, nil
}

// toHistory converts wire messages into the stored transcript form.
func toHistory(msgs []openai.ChatCompletionMessage) model.History {
	out := make(model.History, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, model.NewMessage(m.Role, m.Content))
	}
	return out
}

// toWireMessages renders the session transcript for the upstream call.
func toWireMessages(h model.History) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(h))
	for _, m := range h {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
