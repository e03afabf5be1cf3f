package components

import (
	"fmt"
	"html/template"
)

// StatCard generates a statistics card
func StatCard(value, label, icon, color string) string {
	return fmt.Sprintf(`
<div class="card stat-card border-%s">
    <div class="card-body d-flex flex-column justify-content-center">
        <h2 class="stat-value text-%s">%s</h2>
        <p class="stat-label">%s %s</p>
    </div>
</div>`, color, color, template.HTMLEscapeString(value), icon, template.HTMLEscapeString(label))
}

// StatCardWithLink generates a statistics card with a link button
func StatCardWithLink(value, label, icon, color, linkURL, linkText string) string {
	return fmt.Sprintf(`
<div class="card stat-card border-%s">
    <div class="card-body d-flex flex-column justify-content-center">
        <h2 class="stat-value text-%s">%s</h2>
        <p class="stat-label">%s %s</p>
        <a href="%s" class="btn btn-sm btn-outline-%s mt-auto">%s</a>
    </div>
</div>`, color, color, template.HTMLEscapeString(value), icon, template.HTMLEscapeString(label), linkURL, color, linkText)
}

// ConfigCard generates a card showing configuration values
func ConfigCard(title string, items []ConfigItem) string {
	html := fmt.Sprintf(`
<div class="card mb-4">
    <div class="card-header">
        <h5 class="mb-0"><i class="bi bi-gear-fill me-2"></i>%s</h5>
    </div>
    <div class="card-body">
        <table class="table table-sm config-table mb-0">
            <tbody>`, template.HTMLEscapeString(title))

	for _, item := range items {
		cell := fmt.Sprintf(`<span class="config-value">%s</span>`, template.HTMLEscapeString(item.Value))
		if item.Badge != "" {
			cell = item.Badge
		}
		html += fmt.Sprintf(`
                <tr>
                    <td class="fw-bold" style="width: 40%%;">%s</td>
                    <td>%s</td>
                </tr>`, template.HTMLEscapeString(item.Label), cell)
	}

	html += `
            </tbody>
        </table>
    </div>
</div>`

	return html
}

// ConfigItem represents a configuration item for display. Badge, when
// set, replaces the plain value cell with pre-rendered badge markup.
type ConfigItem struct {
	Label string
	Value string
	Badge string
}
