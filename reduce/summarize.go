package reduce

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/model"
)

// CompletionClient is the narrow LLM surface the summarizer needs. The
// orchestrator implements it on top of the provider router; tests use
// an in-package mock.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// defaultSummarizationPrompt is the system prompt used when the
// configuration does not override it. %d is the token budget.
const defaultSummarizationPrompt = "You are a conversation summarizer. " +
	"Summarize the following conversation concisely, preserving key information, " +
	"user intent, and important context. Keep the summary under %d tokens."

// summaryResponseTokens caps the summarizer completion itself.
const summaryResponseTokens = 500

// maxFormattedMessageLen truncates long messages before they enter the
// summarization prompt.
const maxFormattedMessageLen = 500

// keptRecentMinimum is the floor of recent messages kept verbatim by
// summarization, so the model always sees the live tail of the chat.
const keptRecentMinimum = 2

// summarizeHistory partitions the history into old and kept-recent
// messages, asks the summarization model to compress the old part and
// splices the summary in as a marked system message.
func (e *Engine) summarizeHistory(ctx context.Context, h model.History, cfg config.ContextConfig) (Result, error) {
	if e.client == nil {
		return Result{}, fmt.Errorf("no summarization client configured")
	}

	system, other := partition(h, cfg)

	kept := tailByTurns(other, cfg.MaxTurns)
	if len(kept) < keptRecentMinimum && len(other) >= keptRecentMinimum {
		kept = other[len(other)-keptRecentMinimum:]
	}

	old := other[:len(other)-len(kept)]
	if len(old) == 0 {
		return Result{}, fmt.Errorf("no messages old enough to summarize")
	}

	summary, err := e.summarize(ctx, old, cfg)
	if err != nil {
		return Result{}, err
	}

	reduced := joinHistories(system, model.History{model.NewSummaryMessage(summary)}, kept)
	if reduced.EstimatedTokens() >= h.EstimatedTokens() {
		return Result{}, fmt.Errorf("summarization did not shrink the history")
	}

	return Result{History: reduced, Summary: summary, Mode: config.ModeSummarization}, nil
}

// summarize sends the old messages to the summarization model and
// returns the summary text.
func (e *Engine) summarize(ctx context.Context, old model.History, cfg config.ContextConfig) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.SummarizationModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizationPrompt(cfg)},
			{Role: openai.ChatMessageRoleUser, Content: formatConversation(old) + "\nSummary:"},
		},
		MaxTokens: summaryResponseTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarization request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarization model returned no choices")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("summarization model returned an empty summary")
	}
	return summary, nil
}

// summarizationPrompt builds the system prompt, substituting the token
// budget into the configured template or the default.
func summarizationPrompt(cfg config.ContextConfig) string {
	if cfg.SummarizationPrompt != "" {
		return strings.ReplaceAll(cfg.SummarizationPrompt, "{max_tokens}", strconv.Itoa(cfg.MaxTokens))
	}
	return fmt.Sprintf(defaultSummarizationPrompt, cfg.MaxTokens)
}

// formatConversation renders messages as "role: content" lines,
// truncating oversized messages.
func formatConversation(msgs model.History) string {
	var b strings.Builder
	for _, msg := range msgs {
		content := msg.Content
		if content == "" {
			continue
		}
		if len(content) > maxFormattedMessageLen {
			content = content[:maxFormattedMessageLen] + "..."
		}
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, content)
	}
	return b.String()
}
