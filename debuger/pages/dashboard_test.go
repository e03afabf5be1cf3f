package pages

import (
	"strings"
	"testing"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/model"
)

func TestRenderDashboard(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Type = config.StorageSQLite

	s := model.NewSession("alice", "s1")
	s.Append(model.NewMessage(model.RoleUser, "hi"))

	html := RenderDashboard([]*model.Session{s}, cfg)

	for _, want := range []string{
		`class="row g-4 mb-4"`,   // stat cards laid out on the grid helpers
		`class="card stat-card`,  // stat cards styled via the stylesheet
		`>sqlite</span>`,         // storage backend rendered as a badge
		`>truncation</span>`,     // reduction mode rendered as a badge
	} {
		if !strings.Contains(html, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}
