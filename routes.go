package modelrelay

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"github.com/ghiac/modelrelay/engine"
	"github.com/ghiac/modelrelay/model"
)

// RegisterRoutes registers the relay's HTTP surface on the given gin
// engine: the OpenAI-compatible API, the health endpoint, the session
// admin API, and the debug dashboard when enabled.
func (r *Relay) RegisterRoutes(router *gin.Engine) {
	router.POST("/v1/chat/completions", r.handleChatCompletion)
	router.GET("/v1/models", r.handleModels)
	router.GET("/health", r.handleHealth)

	r.registerAdminRoutes(router)

	if r.debug != nil {
		r.debug.RegisterRoutes(router)
	}
}

// handleChatCompletion serves POST /v1/chat/completions for both the
// buffered and the streaming path.
func (r *Relay) handleChatCompletion(c *gin.Context) {
	var req openai.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, model.NewInvalidRequestError("invalid request body: "+err.Error()))
		return
	}

	turn, err := r.engine.Begin(c.Request.Context(), req)
	if err != nil {
		writeAPIError(c, model.AsAPIError(err))
		return
	}

	if req.Stream {
		r.streamCompletion(c, turn, req)
		return
	}

	defer turn.Close()
	body, err := r.engine.Complete(c.Request.Context(), turn, req)
	if err != nil {
		writeAPIError(c, model.AsAPIError(err))
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// streamCompletion relays upstream SSE frames to the client. Every
// stream, failed ones included, is terminated with the [DONE] sentinel
// once the SSE response has started.
func (r *Relay) streamCompletion(c *gin.Context, turn *engine.Turn, req openai.ChatCompletionRequest) {
	defer turn.Close()

	frames, err := r.engine.Stream(c.Request.Context(), turn, req)
	if err != nil {
		// Upstream refused before any frame: a plain error response is
		// still possible.
		writeAPIError(c, model.AsAPIError(err))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Flush()

	for f := range frames {
		fmt.Fprintf(c.Writer, "data: %s\n\n", f.Data)
		c.Writer.Flush()
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

// handleModels serves GET /v1/models.
func (r *Relay) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, r.engine.Models())
}

// handleHealth serves GET /health. A degraded store is reported in the
// body, not the status code, so probes can distinguish "down" from
// "up but impaired".
func (r *Relay) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, r.engine.CheckHealth(c.Request.Context()))
}

// writeAPIError renders the OpenAI error envelope. Store outages add a
// Retry-After hint.
func writeAPIError(c *gin.Context, err *model.APIError) {
	if err.Code == model.ErrCodeServiceUnavailable {
		c.Header("Retry-After", "5")
	}
	c.JSON(err.Status, err.Envelope())
}
