package ui

import (
	"fmt"
	"html/template"
)

const (
	bootstrapCSS          = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.2/dist/css/bootstrap.min.css"
	bootstrapCSSIntegrity = "sha384-T3c6CoIi6uLrA9TneNEoa7RxnatzjcDSCmG1MXxSR1GAsXEV/Dwwykc2MPK8M2HN"
	bootstrapIcons        = "https://cdn.jsdelivr.net/npm/bootstrap-icons@1.11.1/font/bootstrap-icons.css"
	bootstrapJS           = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.2/dist/js/bootstrap.bundle.min.js"
	bootstrapJSIntegrity  = "sha384-BBtl+eGJRgqQAUMxJ7pMwbEyER4l1g+O15P+16Ep7Q9Q+zqX6gSbd85u4mG4QzX+"
)

// refreshScript reloads the page every 30 seconds so an open dashboard
// tracks live session state without manual refreshes.
const refreshScript = `setTimeout(function() { location.reload(); }, 30000);`

// Header opens the HTML document, pulling Bootstrap from the CDN and
// inlining the relay stylesheet.
func Header(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <link href="%s" rel="stylesheet" integrity="%s" crossorigin="anonymous">
    <link rel="stylesheet" href="%s">
    <style>%s</style>
</head>
<body>`, template.HTMLEscapeString(title), bootstrapCSS, bootstrapCSSIntegrity, bootstrapIcons, styleSheet)
}

// Footer closes the document and loads the Bootstrap bundle.
func Footer() string {
	return fmt.Sprintf(`
    <script src="%s" integrity="%s" crossorigin="anonymous"></script>
    <script>%s</script>
</body>
</html>`, bootstrapJS, bootstrapJSIntegrity, refreshScript)
}

// ContainerStart opens the white content panel under the navbar.
func ContainerStart() string {
	return `<div class="container">
    <div class="main-container">`
}

// ContainerEnd closes the content panel.
func ContainerEnd() string {
	return `    </div>
</div>`
}

// CardStartWithCount opens a card whose header shows a count next to
// the title.
func CardStartWithCount(title, icon string, count int) string {
	return fmt.Sprintf(`<div class="card mb-4">
    <div class="card-header">
        <h4 class="mb-0"><i class="bi bi-%s me-2"></i>%s (%d)</h4>
    </div>
    <div class="card-body">`, icon, template.HTMLEscapeString(title), count)
}

// CardEnd closes a card.
func CardEnd() string {
	return `    </div>
</div>`
}

// Row wraps content in a Bootstrap grid row.
func Row(content string) string {
	return fmt.Sprintf(`<div class="row g-4 mb-4">%s</div>`, content)
}

// Column wraps content in a grid column of the given size classes.
func Column(size string, content string) string {
	return fmt.Sprintf(`<div class="%s">%s</div>`, size, content)
}
