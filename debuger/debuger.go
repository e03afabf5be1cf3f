// Package debuger serves the HTML debug dashboard: session listings,
// transcripts with memory zones, and per-model usage charts. It is
// mounted only when server.debug is enabled.
package debuger

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/debuger/pages"
	"github.com/ghiac/modelrelay/model"
	"github.com/ghiac/modelrelay/store"
	"github.com/ghiac/modelrelay/visualize"
)

// Debugger renders debug pages over the live session store.
type Debugger struct {
	store store.SessionStore
	cfg   *config.Config
}

// New creates a debugger over the given store and configuration.
func New(st store.SessionStore, cfg *config.Config) *Debugger {
	return &Debugger{store: st, cfg: cfg}
}

// RegisterRoutes mounts the debug pages.
// Routes: /debug, /debug/sessions, /debug/sessions/:userID/:sessionID, /debug/usage
func (d *Debugger) RegisterRoutes(router *gin.Engine) {
	router.GET("/debug", d.handleDashboard)
	router.GET("/debug/sessions", d.handleSessions)
	router.GET("/debug/sessions/:userID/:sessionID", d.handleSessionDetail)
	router.GET("/debug/usage", d.handleUsage)
}

// loadSessions lists every session, newest first.
func (d *Debugger) loadSessions(c *gin.Context) ([]*model.Session, bool) {
	sessions, err := d.store.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, true
}

// handleDashboard handles the dashboard page with totals and config
func (d *Debugger) handleDashboard(c *gin.Context) {
	sessions, ok := d.loadSessions(c)
	if !ok {
		return
	}

	html := pages.RenderDashboard(sessions, d.cfg)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}

// handleSessions handles the paginated session list page
func (d *Debugger) handleSessions(c *gin.Context) {
	sessions, ok := d.loadSessions(c)
	if !ok {
		return
	}

	html := pages.RenderSessions(sessions, getPageParam(c))
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}

// handleSessionDetail handles the transcript page for one session
func (d *Debugger) handleSessionDetail(c *gin.Context) {
	key := model.SessionKey{
		UserID:    c.Param("userID"),
		SessionID: c.Param("sessionID"),
	}

	session, err := d.store.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	html := pages.RenderSessionDetail(session)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}

// handleUsage handles the per-model token usage chart
func (d *Debugger) handleUsage(c *gin.Context) {
	sessions, ok := d.loadSessions(c)
	if !ok {
		return
	}

	html, err := visualize.RenderUsageChart(sessions, "Token Usage by Model")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}

// getPageParam extracts page number from query params (defaults to 1)
func getPageParam(c *gin.Context) int {
	pageStr := c.Query("page")
	if pageStr == "" {
		return 1
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
