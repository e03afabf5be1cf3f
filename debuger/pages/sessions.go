package pages

import (
	"fmt"
	"html/template"

	"github.com/ghiac/modelrelay/debuger/ui"
	"github.com/ghiac/modelrelay/debuger/ui/components"
	"github.com/ghiac/modelrelay/model"
)

// sessionsPerPage bounds the session list page size
const sessionsPerPage = 50

// RenderSessions generates the paginated session list page
func RenderSessions(sessions []*model.Session, page int) string {
	html := ui.Header("ModelRelay Debug - Sessions")
	html += ui.Navbar("/debug/sessions")
	html += ui.ContainerStart()
	html += ui.CardStartWithCount("Sessions", "list-ul", len(sessions))

	if len(sessions) == 0 {
		html += components.EmptyTableMessage("No sessions stored yet")
	} else {
		startIdx, endIdx, _ := components.GetPaginationInfo(page, len(sessions), sessionsPerPage)

		html += components.TableStart([]string{
			"User", "Session", "Model", "Messages", "Turns", "Memory", "Tokens", "Updated",
		})

		for _, s := range sessions[startIdx:endIdx] {
			detailURL := fmt.Sprintf("/debug/sessions/%s/%s", s.UserID, s.SessionID)
			html += components.TableRow([]string{
				template.HTMLEscapeString(s.UserID),
				fmt.Sprintf(`<a href="%s"><code>%s</code></a>`, detailURL, template.HTMLEscapeString(s.SessionID)),
				template.HTMLEscapeString(s.Metadata["model"]),
				components.CountBadge(len(s.History), "primary"),
				components.CountBadge(s.History.TurnCount(), "info"),
				components.CountBadge(len(s.MemoryZone), "warning text-dark"),
				components.TokenBadge(s.TotalTokensUsed),
				s.UpdatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		html += components.TableEnd()
		html += components.Pagination(page, len(sessions), sessionsPerPage, "/debug/sessions")
	}

	html += ui.CardEnd()
	html += ui.ContainerEnd()
	html += ui.Footer()

	return html
}
