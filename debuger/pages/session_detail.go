package pages

import (
	"fmt"
	"html/template"

	"github.com/ghiac/modelrelay/debuger/ui"
	"github.com/ghiac/modelrelay/debuger/ui/components"
	"github.com/ghiac/modelrelay/model"
)

// RenderSessionDetail generates the transcript page for one session
func RenderSessionDetail(session *model.Session) string {
	title := fmt.Sprintf("Session %s", session.Key())

	html := ui.Header("ModelRelay Debug - " + title)
	html += ui.Navbar("/debug/sessions")
	html += ui.ContainerStart()

	// Session info
	html += components.ConfigCard(title, []components.ConfigItem{
		{Label: "User", Value: session.UserID},
		{Label: "Session", Value: session.SessionID},
		{Label: "Model", Value: session.Metadata["model"]},
		{Label: "Created", Value: session.CreatedAt.Format("2006-01-02 15:04:05")},
		{Label: "Updated", Value: session.UpdatedAt.Format("2006-01-02 15:04:05")},
		{Label: "Total Tokens Used", Value: fmt.Sprintf("%d", session.TotalTokensUsed)},
	})

	// Memory zone panel
	html += ui.CardStartWithCount("Memory Zone", "archive", len(session.MemoryZone))
	if len(session.MemoryZone) == 0 {
		html += components.EmptyTableMessage("No summaries stored for this session")
	} else {
		for i, entry := range session.MemoryZone {
			html += fmt.Sprintf(`<div class="memory-entry">%s <div class="message-content">%s</div></div>`,
				components.CountBadge(i+1, "secondary"),
				template.HTMLEscapeString(entry))
		}
	}
	html += ui.CardEnd()

	// Transcript
	html += ui.CardStartWithCount("Transcript", "chat-left-text", len(session.History))
	if len(session.History) == 0 {
		html += components.EmptyTableMessage("Transcript is empty")
	} else {
		html += components.TableStart([]string{"#", "Role", "Content", "Tokens", "Time"})
		for i, msg := range session.History {
			role := components.RoleBadge(msg.Role)
			if msg.IsSummary() {
				role += " " + components.SummaryBadge()
			}
			when := ""
			if msg.Timestamp != nil {
				when = msg.Timestamp.Format("15:04:05")
			}
			html += components.TableRow([]string{
				fmt.Sprintf("%d", i+1),
				role,
				fmt.Sprintf(`<div class="message-content">%s</div>`, template.HTMLEscapeString(msg.Content)),
				fmt.Sprintf("%d", msg.EstimatedTokens()),
				when,
			})
		}
		html += components.TableEnd()
	}
	html += ui.CardEnd()

	html += ui.ContainerEnd()
	html += ui.Footer()

	return html
}
