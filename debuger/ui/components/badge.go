package components

import (
	"fmt"
	"html/template"
)

// Badge generates a Bootstrap badge
func Badge(text, variant string) string {
	return fmt.Sprintf(`<span class="badge bg-%s">%s</span>`, variant, template.HTMLEscapeString(text))
}

// RoleBadge generates a badge for message roles
func RoleBadge(role string) string {
	variant := "secondary"
	switch role {
	case "user":
		variant = "primary"
	case "assistant":
		variant = "success"
	case "system":
		variant = "info"
	}
	return Badge(role, variant)
}

// SummaryBadge marks messages synthesized by summarization
func SummaryBadge() string {
	return Badge("summary", "warning text-dark")
}

// CountBadge generates a count badge
func CountBadge(count int, variant string) string {
	return fmt.Sprintf(`<span class="badge bg-%s">%d</span>`, variant, count)
}

// TokenBadge generates a token usage badge
func TokenBadge(total int) string {
	return fmt.Sprintf(`<span class="badge bg-info">%d tokens</span>`, total)
}

// StorageBadge generates a badge for the storage backend
func StorageBadge(storageType string) string {
	variant := "secondary"
	switch storageType {
	case "memory":
		variant = "info"
	case "redis":
		variant = "danger"
	case "mongodb":
		variant = "success"
	case "sqlite":
		variant = "primary"
	}
	return Badge(storageType, variant)
}

// ModeBadge generates a badge for reduction modes
func ModeBadge(mode string) string {
	variant := "secondary"
	switch mode {
	case "truncation":
		variant = "primary"
	case "sliding_window":
		variant = "info"
	case "summarization":
		variant = "warning text-dark"
	}
	return Badge(mode, variant)
}
