package modelrelay

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ghiac/modelrelay/model"
	"github.com/ghiac/modelrelay/store"
)

// registerAdminRoutes mounts the session administration API. These
// endpoints are the only way to clear a memory zone; a session reset
// deliberately leaves it intact.
func (r *Relay) registerAdminRoutes(router *gin.Engine) {
	admin := router.Group("/admin")
	admin.GET("/sessions", r.handleListSessions)
	admin.GET("/sessions/:userID/:sessionID", r.handleGetSession)
	admin.POST("/sessions/:userID/:sessionID/reset", r.handleResetSession)
	admin.DELETE("/sessions/:userID/:sessionID", r.handleDeleteSession)
	admin.DELETE("/sessions/:userID/:sessionID/memory", r.handleClearMemory)
}

// sessionSummary is one row of the session listing.
type sessionSummary struct {
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Messages   int       `json:"messages"`
	Turns      int       `json:"turns"`
	Tokens     int       `json:"total_tokens_used"`
	MemoryZone int       `json:"memory_zone_entries"`
	Model      string    `json:"model,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func summarize(s *model.Session) sessionSummary {
	return sessionSummary{
		UserID:     s.UserID,
		SessionID:  s.SessionID,
		Messages:   len(s.History),
		Turns:      s.History.TurnCount(),
		Tokens:     s.TotalTokensUsed,
		MemoryZone: len(s.MemoryZone),
		Model:      s.Metadata["model"],
		UpdatedAt:  s.UpdatedAt,
	}
}

// handleListSessions serves GET /admin/sessions, optionally filtered by
// ?user=.
func (r *Relay) handleListSessions(c *gin.Context) {
	var sessions []*model.Session
	var err error

	if user := c.Query("user"); user != "" {
		sessions, err = r.store.List(c.Request.Context(), user)
	} else {
		sessions, err = r.store.ListAll(c.Request.Context())
	}
	if err != nil {
		writeAPIError(c, model.NewStoreUnavailableError(err))
		return
	}

	summaries := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, summarize(s))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries, "count": len(summaries)})
}

func sessionKeyParam(c *gin.Context) model.SessionKey {
	return model.SessionKey{
		UserID:    c.Param("userID"),
		SessionID: c.Param("sessionID"),
	}
}

// handleGetSession serves GET /admin/sessions/:userID/:sessionID with
// the full transcript and memory zone.
func (r *Relay) handleGetSession(c *gin.Context) {
	session, err := r.store.Get(c.Request.Context(), sessionKeyParam(c))
	if errors.Is(err, store.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		writeAPIError(c, model.NewStoreUnavailableError(err))
		return
	}
	c.JSON(http.StatusOK, session)
}

// handleResetSession serves POST .../reset. The transcript is cleared;
// the memory zone and metadata survive.
func (r *Relay) handleResetSession(c *gin.Context) {
	key := sessionKeyParam(c)
	err := r.store.Reset(c.Request.Context(), key)
	if errors.Is(err, store.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		writeAPIError(c, model.NewStoreUnavailableError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset", "session": key.String()})
}

// handleDeleteSession serves DELETE .../:sessionID. Deleting a missing
// session succeeds.
func (r *Relay) handleDeleteSession(c *gin.Context) {
	key := sessionKeyParam(c)
	if err := r.store.Delete(c.Request.Context(), key); err != nil {
		writeAPIError(c, model.NewStoreUnavailableError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "session": key.String()})
}

// handleClearMemory serves DELETE .../memory, emptying the memory zone
// while leaving the transcript alone.
func (r *Relay) handleClearMemory(c *gin.Context) {
	key := sessionKeyParam(c)

	session, err := r.store.Get(c.Request.Context(), key)
	if errors.Is(err, store.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		writeAPIError(c, model.NewStoreUnavailableError(err))
		return
	}

	session.ClearMemory()
	if err := r.store.Put(c.Request.Context(), session); err != nil {
		writeAPIError(c, model.NewStoreUnavailableError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "memory_cleared", "session": key.String()})
}
