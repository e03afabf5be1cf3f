package components

import (
	"fmt"
	"html/template"
)

// TableStart generates the opening tags for a striped, hoverable table
func TableStart(headers []string) string {
	html := `<div class="table-responsive"><table class="table table-striped table-hover align-middle">
    <thead>
        <tr>`

	for _, header := range headers {
		html += fmt.Sprintf(`<th class="text-nowrap">%s</th>`, template.HTMLEscapeString(header))
	}

	html += `
        </tr>
    </thead>
    <tbody>`

	return html
}

// TableEnd generates the closing tags for a table
func TableEnd() string {
	return `    </tbody>
</table></div>`
}

// TableRow generates a table row; cells are raw HTML
func TableRow(cells []string) string {
	html := "<tr>"
	for _, cell := range cells {
		html += fmt.Sprintf("<td>%s</td>", cell)
	}
	html += "</tr>"
	return html
}

// EmptyTableMessage generates a message for empty tables
func EmptyTableMessage(message string) string {
	return fmt.Sprintf(`<div class="alert alert-info text-center">
    <i class="bi bi-info-circle me-2"></i>%s
</div>`, template.HTMLEscapeString(message))
}
