package engine

import (
	"github.com/ghiac/modelrelay/log"
	"github.com/ghiac/modelrelay/provider"
)

// Response shape classifications. Reasoning models sometimes return the
// whole answer in the reasoning channel with an empty content field;
// the classification makes that visible in debug logs.
const (
	shapeTextOnly      = "text_only"
	shapeReasoningOnly = "reasoning_only"
	shapeMixed         = "mixed"
	shapeEmpty         = "empty"
)

// diagnosticPreviewLen bounds how much message text ends up in a debug
// log line.
const diagnosticPreviewLen = 2000

// classifyResponse inspects the first choice of a buffered completion.
func classifyResponse(view provider.ChatCompletionView) string {
	if len(view.Choices) == 0 {
		return shapeEmpty
	}

	msg := view.Choices[0].Message
	hasContent := msg.Content != ""
	hasReasoning := msg.Reasoning() != ""

	switch {
	case hasContent && hasReasoning:
		return shapeMixed
	case hasContent:
		return shapeTextOnly
	case hasReasoning:
		return shapeReasoningOnly
	default:
		return shapeEmpty
	}
}

// logResponseShape emits a debug line for any response that is not
// plain text, with a bounded preview of whatever channel carried the
// answer.
func logResponseShape(turn *Turn, view provider.ChatCompletionView) {
	shape := classifyResponse(view)
	if shape == shapeTextOnly {
		return
	}

	preview := ""
	if len(view.Choices) > 0 {
		preview = truncateForLog(view.Choices[0].Message.Text())
	}
	log.Log.Debugf("request %s: response shape %s (model=%s, preview=%q)",
		turn.RequestID, shape, view.Model, preview)
}

func truncateForLog(s string) string {
	if len(s) > diagnosticPreviewLen {
		return s[:diagnosticPreviewLen] + " [TRUNCATED]"
	}
	return s
}
