// Package reduce decides when a conversation history exceeds its
// configured budget and shrinks it with one of three strategies:
// truncation, sliding window, or LLM summarization.
package reduce

import (
	"context"
	"fmt"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/model"
)

// ShouldReduce reports whether the history exceeds the configured turn
// or token budget.
func ShouldReduce(h model.History, cfg config.ContextConfig) bool {
	return h.TurnCount() > cfg.MaxTurns || h.EstimatedTokens() > cfg.MaxTokens
}

// Result is the outcome of one reduction pass.
type Result struct {
	History model.History
	Summary string // non-empty only when summarization produced one
	Mode    string // strategy actually applied
	// Fallback is set when summarization failed and truncation ran
	// instead; FallbackErr carries the cause for the warning log.
	Fallback    bool
	FallbackErr error
}

// Engine applies reduction strategies. The summarizer client is only
// needed for summarization mode; a nil client makes that mode fall
// back to truncation.
type Engine struct {
	client CompletionClient
}

// New creates a reduction engine backed by the given summarizer client.
func New(client CompletionClient) *Engine {
	return &Engine{client: client}
}

// Apply reduces the history according to cfg.ReductionMode. A failed
// summarization never fails the pass: it degrades to truncation and
// reports the cause in the result.
func (e *Engine) Apply(ctx context.Context, h model.History, cfg config.ContextConfig) (Result, error) {
	switch cfg.ReductionMode {
	case config.ModeTruncation:
		return Result{History: truncate(h, cfg), Mode: config.ModeTruncation}, nil

	case config.ModeSlidingWindow:
		return Result{History: slideWindow(h, cfg), Mode: config.ModeSlidingWindow}, nil

	case config.ModeSummarization:
		res, err := e.summarizeHistory(ctx, h, cfg)
		if err != nil {
			return Result{
				History:     truncate(h, cfg),
				Mode:        config.ModeTruncation,
				Fallback:    true,
				FallbackErr: err,
			}, nil
		}
		return res, nil

	default:
		return Result{}, fmt.Errorf("unsupported reduction mode %q", cfg.ReductionMode)
	}
}

// partition splits the history into preserved system messages and the
// reducible remainder. With preservation disabled, system messages are
// treated like any other message.
func partition(h model.History, cfg config.ContextConfig) (system model.History, other model.History) {
	if !cfg.PreserveSystem {
		return nil, h.Clone()
	}
	return h.Split()
}

// tailByTurns returns the newest contiguous run of messages containing
// at most maxTurns turns. The cut lands on a user message so the kept
// run never opens with an orphaned assistant reply.
func tailByTurns(msgs model.History, maxTurns int) model.History {
	if maxTurns < 1 {
		maxTurns = 1
	}

	turns := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser {
			turns++
			if turns == maxTurns {
				return msgs[i:]
			}
		}
	}
	return msgs
}

// truncate keeps the most recent messages fitting MaxTurns turns,
// discarding oldest non-system messages first. Deterministic, no
// summary.
func truncate(h model.History, cfg config.ContextConfig) model.History {
	system, other := partition(h, cfg)
	kept := tailByTurns(other, cfg.MaxTurns)
	return joinHistories(system, kept)
}

// slideWindow keeps the newest messages whose estimated tokens fit the
// budget left after the preserved system messages.
func slideWindow(h model.History, cfg config.ContextConfig) model.History {
	system, other := partition(h, cfg)

	budget := cfg.MaxTokens - system.EstimatedTokens()
	if budget <= 0 {
		return system.Clone()
	}

	cut := len(other)
	total := 0
	for i := len(other) - 1; i >= 0; i-- {
		total += other[i].EstimatedTokens()
		if total > budget {
			break
		}
		cut = i
	}

	return joinHistories(system, other[cut:])
}

func joinHistories(parts ...model.History) model.History {
	out := model.History{}
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
